// Package cursor keeps the unread remainder of paged results between
// requests.
//
// A cursor is opened with the full remainder and read page by page with
// Next. Every access refreshes its time-to-live; cursors left idle past
// the TTL are evicted by Sweep, or by Run in the background. Pinned
// cursors never expire and must be closed or drained by their owner.
package cursor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown, drained, closed or expired cursors.
var ErrNotFound = errors.New("cursor not found")

// DefaultTTL is the idle lifetime of an unpinned cursor.
const DefaultTTL = 5 * time.Minute

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// IDGenerator produces cursor ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

type config struct {
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*config)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithIDGenerator replaces the UUIDv7 id source, for deterministic tests.
func WithIDGenerator(g IDGenerator) Option {
	return func(cfg *config) { cfg.ids = g }
}

// WithLogger sets the logger eviction is reported to.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

type entry[T any] struct {
	items   []T
	pinned  bool
	expires time.Time
}

// Store holds open cursors over items of type T.
// It is safe for concurrent use.
type Store[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	ids     IDGenerator
	logger  *slog.Logger
	entries map[string]*entry[T]
}

// New returns an empty store. A non-positive ttl selects DefaultTTL.
func New[T any](ttl time.Duration, opts ...Option) *Store[T] {
	cfg := config{clock: SystemClock, ids: UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[T]{
		ttl:     ttl,
		clock:   cfg.clock,
		ids:     cfg.ids,
		logger:  cfg.logger,
		entries: make(map[string]*entry[T]),
	}
}

// TTL returns the idle lifetime of unpinned cursors.
func (s *Store[T]) TTL() time.Duration {
	return s.ttl
}

// Open stores items under a new cursor id. The store takes ownership of
// the slice.
func (s *Store[T]) Open(items []T, pinned bool) string {
	id := s.ids.Generate()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &entry[T]{items: items, pinned: pinned, expires: s.clock.Now().Add(s.ttl)}
	return id
}

// lookup returns a live entry, dropping it if it has expired.
// Callers hold s.mu.
func (s *Store[T]) lookup(id string) (*entry[T], error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.pinned && !s.clock.Now().Before(e.expires) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	return e, nil
}

// Next returns up to n items and whether more remain. A non-positive n
// returns everything left. The cursor is removed once drained.
func (s *Store[T]) Next(id string, n int) ([]T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id)
	if err != nil {
		return nil, false, err
	}
	if n <= 0 || n > len(e.items) {
		n = len(e.items)
	}
	page := e.items[:n:n]
	e.items = e.items[n:]
	if len(e.items) == 0 {
		delete(s.entries, id)
		return page, false, nil
	}
	e.expires = s.clock.Now().Add(s.ttl)
	return page, true, nil
}

// Close discards a cursor.
func (s *Store[T]) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(id); err != nil {
		return err
	}
	delete(s.entries, id)
	return nil
}

// Take removes a cursor and hands its remaining items to the caller.
func (s *Store[T]) Take(id string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	delete(s.entries, id)
	return e.items, nil
}

// Len returns the number of stored cursors, expired ones included until
// the next sweep.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts expired cursors and returns how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	evicted := 0
	for id, e := range s.entries {
		if e.pinned || now.Before(e.expires) {
			continue
		}
		delete(s.entries, id)
		evicted++
		s.logger.Debug("cursor evicted", "cursor", id, "remaining", len(e.items))
	}
	return evicted
}

// Run sweeps every interval until ctx is done. A non-positive interval
// sweeps once per TTL.
func (s *Store[T]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
