// Package publisher maps home status snapshots onto the MQTT topic tree.
package publisher
