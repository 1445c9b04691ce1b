package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jonwraymond/postinsights/insight"
	"github.com/jonwraymond/postinsights/observe"
)

// LookupStatus classifies the outcome of a Lookup.
type LookupStatus int

const (
	// Miss means no document exists for the key.
	Miss LookupStatus = iota
	// Hit means a readable document was found.
	Hit
	// Corrupt means a document exists but could not be read or parsed.
	Corrupt
)

func (s LookupStatus) String() string {
	switch s {
	case Hit:
		return observe.LookupHit
	case Corrupt:
		return observe.LookupCorrupt
	default:
		return observe.LookupMiss
	}
}

// Lookup is the result of consulting the store for one request.
type Lookup struct {
	Status LookupStatus
	Key    string
	Entry  *Entry
	Err    error // cause of a Corrupt status
}

// Found reports whether the lookup produced a usable entry. Corrupt
// documents count as misses.
func (l Lookup) Found() bool {
	return l.Status == Hit && l.Entry != nil
}

// Store persists insights as JSON documents in a Backend.
//
// Contract:
// - Concurrency: safe for concurrent use when the Backend is.
// - Lookup never fails: every read problem degrades to a miss.
// - Save returns errors wrapping ErrPersist and never panics.
type Store struct {
	backend Backend
	keyer   Keyer
	logger  observe.Logger
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithKeyer overrides the key derivation.
func WithKeyer(k Keyer) StoreOption {
	return func(s *Store) { s.keyer = k }
}

// WithLogger sets the logger used for degraded reads and write failures.
func WithLogger(l observe.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the timestamp source for saved entries.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		keyer:   NewDefaultKeyer(),
		logger:  observe.NopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Key derives the key for a request.
func (s *Store) Key(category string, authors []string, filters map[string]any) (string, error) {
	return s.keyer.Key(category, authors, filters)
}

// Lookup consults the store for a request.
func (s *Store) Lookup(ctx context.Context, category string, authors []string, filters map[string]any) Lookup {
	key, err := s.keyer.Key(category, authors, filters)
	if err != nil {
		// No document can exist under a key that cannot be derived.
		return Lookup{Status: Miss, Err: err}
	}
	name, err := DocumentName(key)
	if err != nil {
		return Lookup{Status: Miss, Key: key, Err: err}
	}

	logger := s.logger.With(observe.Op{Name: "lookup", Category: category, Key: key})

	data, err := s.backend.Read(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return Lookup{Status: Miss, Key: key}
	}
	if err != nil {
		logger.Warn(ctx, "cache document unreadable, treating as miss",
			observe.Field{Key: "error", Value: err.Error()})
		return Lookup{Status: Corrupt, Key: key, Err: err}
	}

	entry, err := decodeEntry(data)
	if err != nil {
		logger.Warn(ctx, "cache document corrupt, treating as miss",
			observe.Field{Key: "error", Value: err.Error()})
		return Lookup{Status: Corrupt, Key: key, Err: err}
	}

	return Lookup{Status: Hit, Key: key, Entry: entry}
}

// Load returns the cached entry for a request, or false on a miss.
func (s *Store) Load(ctx context.Context, category string, authors []string, filters map[string]any) (*Entry, bool) {
	l := s.Lookup(ctx, category, authors, filters)
	return l.Entry, l.Found()
}

// Save persists ins for a request and returns the stored entry.
func (s *Store) Save(ctx context.Context, category string, authors []string, ins *insight.Insight, filters map[string]any) (*Entry, error) {
	if ins == nil {
		return nil, fmt.Errorf("%w: nil insight", ErrPersist)
	}

	key, err := s.keyer.Key(category, authors, filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	name, err := DocumentName(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if authors == nil {
		authors = []string{}
	}
	if filters == nil {
		filters = map[string]any{}
	}
	entry := &Entry{
		Category:    category,
		Authors:     authors,
		Filters:     filters,
		GeneratedAt: Timestamp{s.now().UTC().Truncate(time.Second)},
		Insights:    *ins,
	}

	data, err := encodeEntry(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}

	if err := s.backend.Write(ctx, name, data); err != nil {
		s.logger.With(observe.Op{Name: "save", Category: category, Key: key}).
			Error(ctx, "cache write failed", observe.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	return entry, nil
}

// Clear removes every document. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	names, err := s.backend.Names(ctx)
	if err != nil {
		return fmt.Errorf("%w: list: %w", ErrPersist, err)
	}

	var errs []error
	for _, name := range names {
		if err := s.backend.Delete(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// List describes every readable document, sorted by filename. Documents that
// fail to read or parse are skipped.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	infos, _, err := s.scan(ctx)
	return infos, err
}

// Summary reports the total document count (including unparseable ones),
// the backend location and the readable documents.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	infos, total, err := s.scan(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		TotalCached: total,
		Location:    s.backend.Location(),
		Files:       infos,
	}, nil
}

func (s *Store) scan(ctx context.Context) ([]Info, int, error) {
	names, err := s.backend.Names(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("cache: list documents: %w", err)
	}
	sort.Strings(names)

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		data, err := s.backend.Read(ctx, name)
		if err != nil {
			continue
		}
		entry, err := decodeEntry(data)
		if err != nil {
			s.logger.Debug(ctx, "skipping unparseable cache document",
				observe.Field{Key: "filename", Value: name})
			continue
		}
		infos = append(infos, Info{
			Filename:    name,
			Category:    entry.Category,
			Authors:     entry.Authors,
			GeneratedAt: entry.GeneratedAt,
		})
	}
	return infos, len(names), nil
}
