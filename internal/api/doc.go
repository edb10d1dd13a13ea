// Package api defines the wire types shared by the daemon's HTTP handlers
// and the command-line client, plus a thin HTTP client for talking to a
// running daemon.
package api
