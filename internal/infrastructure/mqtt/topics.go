package mqtt

import "strings"

// Topics builds the topic hierarchy under a single configurable base.
//
// Layout:
//
//	{base}/{item}/state     per-room and per-module state documents
//	{base}/state            the whole-home snapshot
//	{base}/bridge/status    bridge availability (online/offline, retained)
type Topics struct {
	base string
}

// NewTopics returns a Topics builder for the given base topic.
// Trailing slashes are stripped so "netatmo/" and "netatmo" are equivalent.
func NewTopics(base string) Topics {
	return Topics{base: strings.TrimRight(base, "/")}
}

// ItemState returns the state topic for a named room or module.
// The item name is sanitized so it cannot introduce extra topic levels
// or wildcard characters.
func (t Topics) ItemState(item string) string {
	return t.base + "/" + sanitizeItem(item) + "/state"
}

// Snapshot returns the topic carrying the whole-home status document.
func (t Topics) Snapshot() string {
	return t.base + "/state"
}

// BridgeStatus returns the availability topic used for the LWT and for
// graceful online/offline announcements.
func (t Topics) BridgeStatus() string {
	return t.base + "/bridge/status"
}

// Base returns the configured base topic.
func (t Topics) Base() string {
	return t.base
}

// sanitizeItem makes a room or module name safe for use as a topic level.
// MQTT forbids wildcards in publish topics and a "/" would split the name
// into two levels.
func sanitizeItem(item string) string {
	item = strings.TrimSpace(item)
	replacer := strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")
	return strings.ToLower(replacer.Replace(item))
}
