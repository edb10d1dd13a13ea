// Package accounts stores the shared account table as a single JSON file.
//
// The table maps normalized email addresses to records carrying a display
// name, a hex SHA-256 password hash, and creation/update timestamps. Records
// are only written through a successful verification-code redemption and are
// never deleted. Every mutation rewrites the whole file, which is acceptable
// at the table sizes this system serves.
package accounts
