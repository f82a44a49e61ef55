// Package api is the REST facade over the running daemon.
//
// Command endpoints forward to the vendor API after local validation so a
// bad request never costs a network round trip. Read endpoints serve the
// poller's cached state and the monitor event log. The facade carries no
// authentication and is meant to stay on a trusted LAN.
package api
