// Package hass is a minimal Home Assistant REST API client used by the
// temperature corrector to read reference sensors.
package hass
