// Package mailer sends verification-code emails over SMTP. Delivery is
// strictly best-effort: a missing transport or a send failure downgrades to
// an operator-visible log line carrying the code, and never fails the caller.
package mailer
