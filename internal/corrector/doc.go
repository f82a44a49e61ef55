// Package corrector recalibrates module temperature sensors against
// external reference sensors read from Home Assistant.
package corrector
