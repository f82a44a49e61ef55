// Package config loads and validates the netatmo2mqtt configuration.
//
// Configuration comes from an INI file with sections [credentials], [home],
// [mqtt], [global], [logging], [http] plus optional feature sections
// [homeassistant], [corrector] (with [corrector.rooms]), [monitor],
// [database] and [influxdb]. In the container image the file is rendered at
// startup from environment variables, so the loader also honours a small set
// of direct environment overrides for deployments that bypass the file.
//
// The returned Config is immutable after Load: construct it once at startup
// and pass it by value to the components that need a section.
package config
