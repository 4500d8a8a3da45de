// Package schema holds the versioned, per-platform schema cache.
//
// A Store reads schema content from a Source, validates it, computes its
// content-hash version and publishes an immutable Snapshot through an atomic
// pointer swap. Concurrent refreshes collapse into one source read.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
)

// Source provides raw schema content for one platform.
type Source interface {
	// Name identifies the source in logs (a directory path, "static", ...).
	Name() string

	// Read returns the full schema content. It performs I/O.
	Read(ctx context.Context) (ir.SchemaContent, error)
}

// Config configures a Store.
type Config struct {
	Platform ir.PlatformID
	Source   Source
	Logger   *slog.Logger

	// Now returns the current time for Snapshot.LoadedAt. Defaults to time.Now.
	Now func() time.Time
}

// Validate checks required fields and fills in defaults.
func (c *Config) Validate() error {
	if !c.Platform.Valid() {
		return fmt.Errorf("invalid platform %q", c.Platform)
	}
	if c.Source == nil {
		return errors.New("source is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Store caches the current schema snapshot of one platform.
type Store struct {
	cfg   Config
	log   *slog.Logger
	snap  atomic.Pointer[Snapshot]
	group singleflight.Group
	reads atomic.Int64

	errMu   sync.RWMutex
	lastErr error
}

// New creates a Store. Nothing is read until the first Load.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		cfg: cfg,
		log: cfg.Logger.With("platform", cfg.Platform, "source", cfg.Source.Name()),
	}, nil
}

// Platform returns the platform this store serves.
func (s *Store) Platform() ir.PlatformID { return s.cfg.Platform }

// Load returns the current snapshot.
//
// With forceRefresh=false and a snapshot already loaded it performs no I/O.
// Otherwise it reads the source; a new snapshot is published only when the
// content version changed. On failure the previous snapshot stays live and a
// SchemaLoadError is returned.
func (s *Store) Load(ctx context.Context, forceRefresh bool) (*Snapshot, error) {
	if !forceRefresh {
		if snap := s.snap.Load(); snap != nil {
			return snap, nil
		}
	}

	v, err, shared := s.group.Do("load", func() (any, error) {
		return s.reload(ctx)
	})
	if shared {
		s.log.Debug("schema load shared with concurrent caller")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Version returns the version of the current snapshot, or "" if nothing has
// loaded yet. It performs no I/O.
func (s *Store) Version() ir.SchemaVersion {
	if snap := s.snap.Load(); snap != nil {
		return snap.version
	}
	return ""
}

// Snapshot returns the current snapshot or nil.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// LastError returns the error from the most recent failed load, cleared by
// the next successful one.
func (s *Store) LastError() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return s.lastErr
}

// Reads returns how many times the source has been read.
func (s *Store) Reads() int64 {
	return s.reads.Load()
}

func (s *Store) reload(ctx context.Context) (*Snapshot, error) {
	s.reads.Add(1)
	start := s.cfg.Now()

	content, err := s.cfg.Source.Read(ctx)
	if err != nil {
		return nil, s.fail(qerr.Wrap(qerr.KindSchemaLoad, err, "read %s schema from %s", s.cfg.Platform, s.cfg.Source.Name()))
	}
	if errs := Validate(&content); len(errs) > 0 {
		return nil, s.fail(validationFailure(s.cfg.Platform, errs))
	}

	version, err := ir.VersionOf(content)
	if err != nil {
		return nil, s.fail(qerr.Wrap(qerr.KindSchemaLoad, err, "hash %s schema", s.cfg.Platform))
	}

	s.setErr(nil)
	if cur := s.snap.Load(); cur != nil && cur.version == version {
		s.log.Debug("schema unchanged", "version", short(version))
		return cur, nil
	}

	snap := newSnapshot(s.cfg.Platform, version, content, s.cfg.Now())
	prev := s.snap.Swap(snap)
	attrs := []any{
		"version", short(version),
		"datasets", len(content.Datasets),
		"duration", s.cfg.Now().Sub(start),
	}
	if prev != nil {
		attrs = append(attrs, "previous", short(prev.version))
	}
	s.log.Info("schema loaded", attrs...)
	return snap, nil
}

func (s *Store) fail(err *qerr.Error) error {
	s.setErr(err)
	s.log.Warn("schema load failed", "error", err)
	return err
}

func (s *Store) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.lastErr = err
}

func validationFailure(platform ir.PlatformID, errs []ValidationError) *qerr.Error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return qerr.New(qerr.KindSchemaLoad, "%s schema is invalid: %s", platform, strings.Join(msgs, "; ")).
		WithDetail("errors", fmt.Sprint(len(errs)))
}

func short(v ir.SchemaVersion) string {
	if len(v) > 12 {
		return string(v[:12])
	}
	return string(v)
}
