// Package services defines shared utilities consumed by the separation
// pipeline and external tool integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent HTTP statuses (validation vs not-found vs upstream).
//   - Thin abstractions that make external command execution testable.
//
// Use these helpers when wiring new handler logic so operational behaviour
// (error handling, observability) stays uniform across the API surface.
package services
