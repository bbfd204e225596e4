// Package daemon runs the long-lived musicscand process.
//
// It owns the HTTP listener that serves the scan API and an flock-based lock
// file that prevents a second instance from sharing the same data directory.
// Wiring of the store and identification pipeline happens in daemonrun; this
// package only handles startup, shutdown and status.
package daemon
