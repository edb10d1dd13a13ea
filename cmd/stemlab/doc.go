// Command stemlab is the command-line client for a running stemlabd daemon:
// health checks, verification-code flows, and library inspection.
package main
