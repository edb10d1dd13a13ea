package verification

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"stemlab/internal/accounts"
	"stemlab/internal/services"
)

const (
	// CodeTTL bounds how long an issued code stays redeemable.
	CodeTTL = 10 * time.Minute

	// expiredRetention keeps dead entries around so a late redemption can be
	// answered with "expired" instead of "not found" before the janitor
	// sweeps them.
	expiredRetention = time.Hour

	cleanupInterval = 5 * time.Minute
)

var (
	ErrNoCode   = errors.New("no verification code requested for this email")
	ErrExpired  = errors.New("verification code has expired")
	ErrMismatch = errors.New("invalid verification code")
)

// Entry is a pending verification code for one email.
type Entry struct {
	Code      string
	ExpiresAt time.Time
}

// Cache registers single-use, time-bounded verification codes keyed by
// normalized email. At most one code is live per email; issuing a new one
// replaces any pending entry.
type Cache struct {
	codes *gocache.Cache
	ttl   time.Duration

	now     func() time.Time
	randInt func(n int) int
}

// NewCache constructs a code cache with the standard TTL.
func NewCache() *Cache {
	return &Cache{
		codes:   gocache.New(CodeTTL+expiredRetention, cleanupInterval),
		ttl:     CodeTTL,
		now:     time.Now,
		randInt: rand.IntN,
	}
}

// Issue generates a 6-digit code for email and stores it, replacing any prior
// pending code. The code is not cryptographically unpredictable; out-of-band
// delivery is the actual gate.
func (c *Cache) Issue(email string) (string, error) {
	key := accounts.NormalizeEmail(email)
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "verification", "issue", "email is required", nil)
	}

	code := fmt.Sprintf("%06d", c.randInt(1000000))
	c.codes.Set(key, Entry{
		Code:      code,
		ExpiresAt: c.now().Add(c.ttl),
	}, gocache.DefaultExpiration)
	return code, nil
}

// Redeem consumes the pending code for email. On success the entry is deleted
// so a second redemption with the same code fails. Expiry is checked lazily
// here rather than by a background sweep.
func (c *Cache) Redeem(email, submitted string) (Entry, error) {
	key := accounts.NormalizeEmail(email)

	value, found := c.codes.Get(key)
	if !found {
		return Entry{}, fmt.Errorf("%w: %w", services.ErrValidation, ErrNoCode)
	}
	entry, ok := value.(Entry)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %w", services.ErrValidation, ErrNoCode)
	}
	if c.now().After(entry.ExpiresAt) {
		return Entry{}, fmt.Errorf("%w: %w", services.ErrValidation, ErrExpired)
	}
	if entry.Code != submitted {
		return Entry{}, fmt.Errorf("%w: %w", services.ErrValidation, ErrMismatch)
	}

	c.codes.Delete(key)
	return entry, nil
}

// Pending reports whether a code entry (live or lazily expired) exists for
// email.
func (c *Cache) Pending(email string) bool {
	_, found := c.codes.Get(accounts.NormalizeEmail(email))
	return found
}
