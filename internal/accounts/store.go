package accounts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"stemlab/internal/logging"
	"stemlab/internal/services"
)

// timestampFormat is fixed-width so timestamp strings sort chronologically.
const timestampFormat = "2006-01-02T15:04:05.000000Z07:00"

// Record is a single account entry keyed by normalized email.
type Record struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// Store persists the account table as one whole-file JSON document. Writes are
// serialized in-process by a mutex and across processes by a sibling lock
// file, and land via temp-file-then-rename so readers never observe a torn
// table.
type Store struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	lock *flock.Flock

	now func() time.Time
}

// NewStore constructs an account store rooted at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logging.WithComponent(logger, "accounts"),
		lock:   flock.New(path + ".lock"),
		now:    time.Now,
	}
}

// NormalizeEmail trims and lowercases an email for use as the lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword returns the hex SHA-256 digest used as the stored password hash.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Record creates or updates the account for email. The creation timestamp of
// an existing account is preserved; name, hash, and the update timestamp are
// overwritten. Every call rewrites the whole table.
func (s *Store) Record(email, name, passwordHash string) (Record, error) {
	key := NormalizeEmail(email)
	if key == "" {
		return Record{}, services.Wrap(services.ErrValidation, "accounts", "record", "email is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return Record{}, fmt.Errorf("acquire accounts lock: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("release accounts lock", logging.Error(err))
		}
	}()

	table := s.load()
	now := s.now().UTC().Format(timestampFormat)

	record := Record{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing, ok := table[key]; ok && existing.CreatedAt != "" {
		record.CreatedAt = existing.CreatedAt
	}
	table[key] = record

	if err := s.save(table); err != nil {
		return Record{}, err
	}
	return record, nil
}

// Load returns the current account table. A missing file yields an empty
// table; a corrupt file is logged for the operator and also degrades to an
// empty table rather than failing the caller.
func (s *Store) Load() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Lookup returns the account for email, if present.
func (s *Store) Lookup(email string) (Record, bool) {
	table := s.Load()
	record, ok := table[NormalizeEmail(email)]
	return record, ok
}

// Emails returns the normalized keys of the table in sorted order.
func (s *Store) Emails() []string {
	table := s.Load()
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) load() map[string]Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("read account table", logging.Error(err))
		}
		return map[string]Record{}
	}

	var table map[string]Record
	if err := json.Unmarshal(data, &table); err != nil {
		s.logger.Warn("account table is corrupt, starting from an empty table",
			logging.String("path", s.path), logging.Error(err))
		return map[string]Record{}
	}
	if table == nil {
		table = map[string]Record{}
	}
	return table
}

func (s *Store) save(table map[string]Record) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account table: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".accounts-*")
	if err != nil {
		return fmt.Errorf("create temp account table: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write account table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close account table: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace account table: %w", err)
	}
	return nil
}
