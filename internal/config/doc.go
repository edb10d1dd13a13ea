// Package config loads, normalizes, and validates Stem Lab configuration.
//
// Configuration comes from a TOML file (explicit path, then
// ~/.config/stemlab/config.toml, then ./stemlab.toml) layered over repository
// defaults, with SMTP settings overridable from the environment so deployments
// can keep mail credentials out of the file. A local .env file is honoured on
// a best-effort basis.
package config
