package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"stemlab/internal/logging"
	"stemlab/internal/media/dataurl"
	"stemlab/internal/services"
)

const (
	metadataFile = "meta.json"
	bundleFile   = "bundle.zip"
	stemSuffix   = ".wav"

	// timestampFormat is fixed-width so listing order matches creation order.
	timestampFormat = "2006-01-02T15:04:05.000000Z07:00"

	defaultTitle = "Session"
)

// Metadata describes one saved session.
type Metadata struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Stems     []string `json:"stems"`
	CreatedAt string   `json:"createdAt"`
	Bundle    string   `json:"bundle"`
}

// Session is metadata with the stem blobs re-encoded for transport.
type Session struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt string            `json:"createdAt"`
	Bundle    string            `json:"bundle"`
	Stems     map[string]string `json:"stems"`
}

// Store persists sessions as one directory per session under a library root:
// one wav file per stem, a metadata record, and a prebuilt zip bundle.
// Sessions are immutable after creation.
type Store struct {
	root   string
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewStore constructs a library store rooted at root, creating it if needed.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("library root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create library root: %w", err)
	}
	return &Store{
		root:   root,
		logger: logging.WithComponent(logger, "library"),
		now:    time.Now,
		newID:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}, nil
}

// Create validates and decodes every stem payload, then writes the session in
// one pass: stem files, metadata, bundle. Decoding everything up front means a
// bad payload leaves no partial session behind.
func (s *Store) Create(title string, stems map[string]string) (Metadata, error) {
	if len(stems) == 0 {
		return Metadata{}, services.Wrap(services.ErrValidation, "library", "create", "payload must include stems", nil)
	}

	names := make([]string, 0, len(stems))
	for name := range stems {
		names = append(names, name)
	}
	sort.Strings(names)

	decoded := make(map[string][]byte, len(stems))
	for _, name := range names {
		if err := validateStemName(name); err != nil {
			return Metadata{}, err
		}
		data, err := dataurl.Decode(stems[name])
		if err != nil {
			return Metadata{}, services.Wrap(services.ErrValidation, "library", "create",
				fmt.Sprintf("could not decode stem %q", name), err)
		}
		decoded[name] = data
	}

	id := s.newID()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Metadata{}, fmt.Errorf("create session directory: %w", err)
	}

	for _, name := range names {
		path := filepath.Join(dir, name+stemSuffix)
		if err := os.WriteFile(path, decoded[name], 0o644); err != nil {
			return Metadata{}, fmt.Errorf("write stem %q: %w", name, err)
		}
	}

	meta := Metadata{
		ID:        id,
		Title:     normalizeTitle(title),
		Stems:     names,
		CreatedAt: s.now().UTC().Format(timestampFormat),
		Bundle:    fmt.Sprintf("/api/library/%s/bundle", id),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return Metadata{}, fmt.Errorf("encode session metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), metaBytes, 0o644); err != nil {
		return Metadata{}, fmt.Errorf("write session metadata: %w", err)
	}

	if err := writeBundle(dir, names, metaBytes, decoded); err != nil {
		return Metadata{}, err
	}

	s.logger.Info("session saved",
		logging.String("id", id),
		logging.String("title", meta.Title),
		logging.Int("stems", len(names)))
	return meta, nil
}

// Get returns the session with id, re-reading every stem blob discovered in
// the session directory rather than trusting the metadata list.
func (s *Store) Get(id string) (Session, error) {
	dir, err := s.sessionDir(id)
	if err != nil {
		return Session{}, err
	}

	meta, err := readMetadata(filepath.Join(dir, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, services.Wrap(services.ErrNotFound, "library", "get", "session not found", nil)
		}
		return Session{}, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Session{}, fmt.Errorf("read session directory: %w", err)
	}

	payloads := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), stemSuffix) {
			continue
		}
		encoded, err := dataurl.EncodeFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return Session{}, fmt.Errorf("encode stem %q: %w", entry.Name(), err)
		}
		payloads[strings.TrimSuffix(entry.Name(), stemSuffix)] = encoded
	}

	return Session{
		ID:        meta.ID,
		Title:     meta.Title,
		CreatedAt: meta.CreatedAt,
		Bundle:    meta.Bundle,
		Stems:     payloads,
	}, nil
}

// List returns metadata for every readable session, ascending by creation
// timestamp. Sessions with unparseable metadata are skipped.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read library root: %w", err)
	}

	items := make([]Metadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := readMetadata(filepath.Join(s.root, entry.Name(), metadataFile))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("skipping unreadable session metadata",
					logging.String("id", entry.Name()), logging.Error(err))
			}
			continue
		}
		items = append(items, meta)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt < items[j].CreatedAt
	})
	return items, nil
}

// BundlePath returns the on-disk path of the prebuilt session archive.
func (s *Store) BundlePath(id string) (string, error) {
	dir, err := s.sessionDir(id)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, bundleFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "library", "bundle", "bundle not found", nil)
		}
		return "", fmt.Errorf("stat bundle: %w", err)
	}
	return path, nil
}

func (s *Store) sessionDir(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", services.Wrap(services.ErrNotFound, "library", "lookup", "session not found", nil)
	}
	return filepath.Join(s.root, id), nil
}

func readMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse session metadata: %w", err)
	}
	return meta, nil
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return defaultTitle
	}
	return title
}

func validateStemName(name string) error {
	if strings.TrimSpace(name) == "" {
		return services.Wrap(services.ErrValidation, "library", "create", "stem name must not be empty", nil)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.Contains(name, "..") {
		return services.Wrap(services.ErrValidation, "library", "create",
			fmt.Sprintf("invalid stem name %q", name), nil)
	}
	return nil
}
