// Package verification issues and redeems the one-time email codes that gate
// account creation. Codes are 6 decimal digits, live for ten minutes, and are
// single-use: redemption deletes the entry, and a reissue for the same email
// invalidates whatever was pending.
package verification
