// Package poller drives the fixed-interval fetch of home status from the
// vendor API and fans each snapshot out to the publisher, the monitor and
// the telemetry recorder.
package poller
