// Package stemsep shells out to the external source-separation CLI. A Client
// wraps one model identifier; the Registry caches clients per model so
// repeated requests reuse the same handle.
package stemsep
