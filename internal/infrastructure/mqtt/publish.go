package mqtt

import (
	"context"
	"fmt"
)

// Publish sends a message to the given topic at the configured QoS.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - topic: Full topic to publish to
//   - payload: Message payload (typically JSON)
//
// Returns:
//   - error: If not connected, the topic is invalid, or the publish times out
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	return c.publish(ctx, topic, payload, false)
}

// PublishRetained sends a retained message so late subscribers receive the
// last known state immediately. Room and module state documents are always
// published retained.
func (c *Client) PublishRetained(ctx context.Context, topic string, payload []byte) error {
	return c.publish(ctx, topic, payload, true)
}

func (c *Client) publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := validateTopic(topic); err != nil {
		return err
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), retained, payload)

	done := make(chan struct{})
	go func() {
		token.WaitTimeout(defaultPublishTimeout)
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	case <-done:
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: topic %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// validateTopic rejects topics that are empty or contain wildcard
// characters, which are only legal in subscriptions.
func validateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty topic", ErrInvalidTopic)
	}
	for _, r := range topic {
		if r == '+' || r == '#' {
			return fmt.Errorf("%w: wildcard in %q", ErrInvalidTopic, topic)
		}
	}
	return nil
}
