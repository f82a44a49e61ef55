// Package generator renders Home Assistant MQTT sensor configuration
// from the home topology, so entities track the bridge's retained state
// topics without manual YAML work.
package generator
