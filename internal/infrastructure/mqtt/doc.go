// Package mqtt provides the publish side of the bridge on top of
// paho.mqtt.golang.
//
// The client is publish-only: room and module state documents flow from the
// poller to the broker as retained JSON, and the bridge announces its own
// availability on {base}/bridge/status via a retained message plus a Last
// Will and Testament for unclean disconnects.
//
// Reconnection is automatic with exponential backoff. Publishes made while
// disconnected fail fast with ErrNotConnected rather than queueing; the
// poller simply publishes fresh state on its next cycle.
package mqtt
