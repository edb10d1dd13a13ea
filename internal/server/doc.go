// Package server hosts the HTTP API: stem separation uploads, email
// verification for accounts, and the saved-session library. Error bodies are
// a uniform {"detail": "..."} document with the status chosen by the service
// error classification.
package server
