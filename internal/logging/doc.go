// Package logging provides file-based structured logging with rotation
// for sopindex. Logs are written as JSON lines to ~/.sopindex/logs/ with
// an optional stderr mirror for interactive runs.
package logging
