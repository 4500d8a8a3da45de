// Package service is the request boundary of huntql.
//
// A Service owns one schema store and one query builder per platform, the
// shared document index and the guardrail engine. It is constructed once and
// passed to every caller; there is no package-level state. Its methods turn
// requests into response values and never return partial results.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/huntql/internal/builder"
	"github.com/roach88/huntql/internal/guardrail"
	"github.com/roach88/huntql/internal/index"
	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/platform"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/schema"
	"github.com/roach88/huntql/internal/similarity"
)

// IDGenerator issues request IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7 generates time-ordered UUIDs.
type UUIDv7 struct{}

// Generate returns a new UUIDv7, or a random UUID if the clock source fails.
func (UUIDv7) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type Config struct {
	Logger *slog.Logger

	// Platforms defaults to every supported platform with default limits.
	Platforms []platform.Platform

	// Sources supplies schema content per platform. Every platform needs one.
	Sources map[ir.PlatformID]schema.Source

	// Cache persists the document index. Optional.
	Cache index.Cache

	Scorer         similarity.Scorer
	MinScore       float64
	BuildPoolSize  int
	SearchCacheTTL time.Duration
	HintLimit      int

	IDs IDGenerator
	Now func() time.Time
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if len(c.Platforms) == 0 {
		c.Platforms = platform.All(nil)
	}
	for _, p := range c.Platforms {
		if c.Sources[p.ID()] == nil {
			return fmt.Errorf("no schema source for platform %s", p.ID())
		}
	}
	if c.Scorer == nil {
		c.Scorer = similarity.Default
	}
	if c.IDs == nil {
		c.IDs = UUIDv7{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Service is safe for concurrent use.
type Service struct {
	log      *slog.Logger
	ids      IDGenerator
	now      func() time.Time
	registry *platform.Registry
	guard    *guardrail.Engine
	index    *index.Index
	stores   map[ir.PlatformID]*schema.Store
	builders map[ir.PlatformID]*builder.Builder
}

// New wires the service. Nothing is loaded until Init or the first request.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registry, err := platform.NewRegistry(cfg.Platforms...)
	if err != nil {
		return nil, err
	}
	ix, err := index.New(index.Config{
		Logger:         cfg.Logger.With("component", "index"),
		Cache:          cfg.Cache,
		Scorer:         cfg.Scorer,
		MinScore:       cfg.MinScore,
		BuildPoolSize:  cfg.BuildPoolSize,
		SearchCacheTTL: cfg.SearchCacheTTL,
	})
	if err != nil {
		return nil, err
	}

	s := &Service{
		log:      cfg.Logger,
		ids:      cfg.IDs,
		now:      cfg.Now,
		registry: registry,
		guard:    guardrail.New(guardrail.Options{Scorer: cfg.Scorer}),
		index:    ix,
		stores:   make(map[ir.PlatformID]*schema.Store),
		builders: make(map[ir.PlatformID]*builder.Builder),
	}
	for _, p := range registry.Platforms() {
		st, err := schema.New(schema.Config{
			Platform: p.ID(),
			Source:   cfg.Sources[p.ID()],
			Logger:   cfg.Logger.With("component", "schema"),
			Now:      cfg.Now,
		})
		if err != nil {
			ix.Close()
			return nil, fmt.Errorf("schema store for %s: %w", p.ID(), err)
		}
		b, err := builder.New(builder.Config{
			Platform:  p,
			Schema:    st,
			Guard:     s.guard,
			Index:     ix,
			Logger:    cfg.Logger.With("component", "builder"),
			HintLimit: cfg.HintLimit,
		})
		if err != nil {
			ix.Close()
			return nil, err
		}
		s.stores[p.ID()] = st
		s.builders[p.ID()] = b
		ix.RegisterSource(p.ID(), st, p.Documents)
	}
	return s, nil
}

// Close releases the index worker pool.
func (s *Service) Close() {
	s.index.Close()
}

// Platforms returns the registered platform IDs.
func (s *Service) Platforms() []ir.PlatformID { return s.registry.IDs() }

// Init loads every schema and makes the index current. A platform whose
// schema fails to load is logged and left degraded; Init fails only when no
// platform could load.
func (s *Service) Init(ctx context.Context) error {
	start := s.now()
	var failed []error
	for _, id := range s.registry.IDs() {
		if _, err := s.stores[id].Load(ctx, false); err != nil {
			s.log.Warn("platform degraded", "platform", id, "error", err)
			failed = append(failed, err)
		}
	}
	if len(failed) == len(s.stores) {
		return qerr.Wrap(qerr.KindSchemaLoad, errors.Join(failed...), "no platform schema could be loaded")
	}

	if err := s.index.EnsureIndex(ctx, false); err != nil && !qerr.IsSchemaLoad(err) {
		return err
	}
	st := s.index.Stats()
	s.log.Info("service ready",
		"platforms", len(s.stores)-len(failed),
		"degraded", len(failed),
		"documents", st.Documents,
		"duration", s.now().Sub(start))
	return nil
}

// Degraded lists platforms whose schema has never loaded.
func (s *Service) Degraded() []ir.PlatformID {
	var out []ir.PlatformID
	for _, id := range s.registry.IDs() {
		if s.stores[id].Snapshot() == nil {
			out = append(out, id)
		}
	}
	return out
}

// Refresh force-reloads one platform's schema and, when its version changed,
// brings the index up to date. It reports whether the version changed.
func (s *Service) Refresh(ctx context.Context, name string) (bool, error) {
	p, err := s.registry.Lookup(name)
	if err != nil {
		return false, err
	}
	st := s.stores[p.ID()]
	before := st.Version()
	snap, err := st.Load(ctx, true)
	if err != nil {
		return false, err
	}
	if snap.Version() == before {
		s.log.Debug("schema unchanged", "platform", p.ID())
		return false, nil
	}
	s.log.Info("schema changed", "platform", p.ID(), "version", shortVersion(snap.Version()))
	if err := s.index.EnsureIndex(ctx, false); err != nil {
		return true, err
	}
	return true, nil
}

// Reindex brings the index up to date, rebuilding every source when force is
// set.
func (s *Service) Reindex(ctx context.Context, force bool) error {
	return s.index.EnsureIndex(ctx, force)
}

// ClearIndex drops the in-memory and persisted index.
func (s *Service) ClearIndex(ctx context.Context) error {
	return s.index.Clear(ctx)
}

// IndexStats describes the current index.
func (s *Service) IndexStats() index.Stats {
	return s.index.Stats()
}

func (s *Service) builderFor(name string) (*builder.Builder, error) {
	p, err := s.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return s.builders[p.ID()], nil
}

func (s *Service) snapshot(ctx context.Context, name string) (*schema.Snapshot, error) {
	p, err := s.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return s.stores[p.ID()].Load(ctx, false)
}

func shortVersion(v ir.SchemaVersion) string {
	if len(v) > 12 {
		return string(v[:12])
	}
	return string(v)
}

