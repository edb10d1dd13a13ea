// Package logging builds the slog loggers used across the daemon.
//
// Two handlers are available: a human-oriented console handler with a
// "timestamp LEVEL component: message k=v" line format (colored when every
// output is a terminal) and a JSON handler for machine consumption. Attr
// helpers keep call sites terse and WithComponent standardizes the component
// attribute the console handler promotes into the line prefix.
package logging
