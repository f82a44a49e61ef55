package mqtt

import "errors"

// Sentinel errors for MQTT operations. Callers can match these with
// errors.Is to distinguish transient broker trouble from caller bugs.
var (
	// ErrConnectionFailed indicates the initial broker connection failed.
	ErrConnectionFailed = errors.New("mqtt connection failed")

	// ErrNotConnected indicates an operation was attempted without an
	// active broker connection.
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrPublishFailed indicates a publish operation failed or timed out.
	ErrPublishFailed = errors.New("mqtt publish failed")

	// ErrInvalidTopic indicates a topic was empty or contained wildcards.
	ErrInvalidTopic = errors.New("invalid mqtt topic")
)
