// Package index maintains the retrieval corpus built from every platform's
// schema and answers ranked similarity searches over it.
//
// The corpus is rebuilt only when a source's schema version changes. Each
// rebuild produces a fresh corpus that replaces the previous one with a
// single pointer swap, so searches never lock and never see a half-built
// corpus. When a cache is configured the corpus is persisted, and a later
// process whose schema versions match reuses it without calling any
// document builder.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/schema"
	"github.com/roach88/huntql/internal/similarity"
	"github.com/roach88/huntql/internal/store"
)

// VersionedLoader is the part of schema.Store the index depends on.
type VersionedLoader interface {
	Load(ctx context.Context, forceRefresh bool) (*schema.Snapshot, error)
	Snapshot() *schema.Snapshot
}

// DocumentBuilder turns one schema snapshot into retrieval documents.
// It must be pure.
type DocumentBuilder func(snap *schema.Snapshot) []ir.Document

// Cache persists corpora across processes. *store.Store implements it.
type Cache interface {
	SaveCorpus(ctx context.Context, docs []ir.Document, versions map[ir.PlatformID]ir.SchemaVersion) (string, error)
	LoadCorpus(ctx context.Context) (*store.Corpus, error)
	Clear(ctx context.Context) error
}

const (
	DefaultMinScore       = 0.3
	DefaultBuildPoolSize  = 4
	DefaultSearchCacheTTL = 5 * time.Minute
	DefaultSearchCacheCap = 1024
)

type Config struct {
	Logger *slog.Logger

	// Cache is optional. Without it every process builds its own corpus.
	Cache Cache

	Scorer         similarity.Scorer
	MinScore       float64
	BuildPoolSize  int
	SearchCacheTTL time.Duration
	SearchCacheCap uint64
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Scorer == nil {
		c.Scorer = similarity.Default
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min score must be within [0,1], got %v", c.MinScore)
	}
	if c.MinScore == 0 {
		c.MinScore = DefaultMinScore
	}
	if c.BuildPoolSize <= 0 {
		c.BuildPoolSize = DefaultBuildPoolSize
	}
	if c.SearchCacheTTL <= 0 {
		c.SearchCacheTTL = DefaultSearchCacheTTL
	}
	if c.SearchCacheCap == 0 {
		c.SearchCacheCap = DefaultSearchCacheCap
	}
	return nil
}

type registration struct {
	platform ir.PlatformID
	loader   VersionedLoader
	builder  DocumentBuilder
}

// Index is safe for concurrent use.
type Index struct {
	log *slog.Logger
	cfg Config

	mu      sync.Mutex // guards sources and order
	sources map[ir.PlatformID]registration
	order   []ir.PlatformID

	buildMu    sync.Mutex // serialises rebuilds
	group      singleflight.Group
	current    atomic.Pointer[corpus]
	generation atomic.Uint64
	builds     atomic.Int64

	pool    pond.ResultPool[[]ir.Document]
	results *ttlcache.Cache[string, []Match]
}

func New(cfg Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Index{
		log:     cfg.Logger,
		cfg:     cfg,
		sources: make(map[ir.PlatformID]registration),
		pool:    pond.NewResultPool[[]ir.Document](cfg.BuildPoolSize),
		results: ttlcache.New(
			ttlcache.WithTTL[string, []Match](cfg.SearchCacheTTL),
			ttlcache.WithCapacity[string, []Match](cfg.SearchCacheCap),
		),
	}, nil
}

// Close stops the build pool.
func (ix *Index) Close() {
	ix.pool.StopAndWait()
}

// RegisterSource adds or replaces the source for platform. It does not build
// anything; the next EnsureIndex picks the change up.
func (ix *Index) RegisterSource(platform ir.PlatformID, loader VersionedLoader, builder DocumentBuilder) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.sources[platform]; !ok {
		ix.order = append(ix.order, platform)
	}
	ix.sources[platform] = registration{platform: platform, loader: loader, builder: builder}
}

func (ix *Index) registrations() []registration {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	regs := make([]registration, len(ix.order))
	for i, p := range ix.order {
		regs[i] = ix.sources[p]
	}
	return regs
}

// BuilderCalls returns how many times any document builder has run.
func (ix *Index) BuilderCalls() int64 { return ix.builds.Load() }

// EnsureIndex makes the corpus current with every registered source.
//
// Without force, a corpus (in memory, or else persisted) whose recorded
// versions equal the sources' current versions is reused as is. Otherwise
// only sources whose version changed are rebuilt, and the result replaces
// the corpus atomically. Concurrent calls share one rebuild.
//
// Sources whose schema cannot be loaded keep their previous documents; their
// load errors are returned after the rest of the corpus is swapped in.
func (ix *Index) EnsureIndex(ctx context.Context, force bool) error {
	key := "ensure"
	if force {
		key = "ensure:force"
	}
	_, err, _ := ix.group.Do(key, func() (any, error) {
		ix.buildMu.Lock()
		defer ix.buildMu.Unlock()
		return nil, ix.ensure(ctx, force)
	})
	return err
}

func (ix *Index) ensure(ctx context.Context, force bool) error {
	regs := ix.registrations()

	snaps := make(map[ir.PlatformID]*schema.Snapshot, len(regs))
	versions := make(map[ir.PlatformID]ir.SchemaVersion, len(regs))
	var loadErrs []error
	for _, r := range regs {
		snap := r.loader.Snapshot()
		if snap == nil {
			var err error
			if snap, err = r.loader.Load(ctx, false); err != nil {
				ix.log.Warn("index source unavailable", "platform", r.platform, "error", err)
				loadErrs = append(loadErrs, err)
				continue
			}
		}
		snaps[r.platform] = snap
		versions[r.platform] = snap.Version()
	}

	base := ix.current.Load()
	if base == nil {
		base = ix.loadPersisted(ctx)
	}

	if !force && base != nil && len(loadErrs) == 0 && base.current(versions) {
		if ix.current.Load() != base {
			ix.swap(base)
			ix.log.Info("index restored from cache", "generation", base.generation, "documents", len(base.docs))
		}
		return nil
	}

	// Sources that need their builder, in registration order.
	var stale []registration
	for _, r := range regs {
		snap, ok := snaps[r.platform]
		if !ok {
			continue
		}
		if force || base == nil || base.versions[r.platform] != snap.Version() {
			stale = append(stale, r)
		}
	}

	built, err := ix.build(ctx, stale, snaps)
	if err != nil {
		return qerr.Wrap(qerr.KindSchemaLoad, err, "index rebuild failed")
	}

	docs := make([]ir.Document, 0)
	next := make(map[ir.PlatformID]ir.SchemaVersion, len(regs))
	for _, r := range regs {
		if d, ok := built[r.platform]; ok {
			docs = append(docs, d...)
			next[r.platform] = versions[r.platform]
			continue
		}
		if base == nil {
			continue
		}
		if v, ok := base.versions[r.platform]; ok {
			docs = append(docs, base.documentsFor(r.platform)...)
			next[r.platform] = v
		}
	}

	// Nothing was rebuilt and no source was dropped: only failed loads kept
	// the fast path from matching.
	if len(stale) == 0 && base != nil && base.current(next) {
		if ix.current.Load() != base {
			ix.swap(base)
		}
		return errors.Join(loadErrs...)
	}

	c := newCorpus(ix.generation.Add(1), docs, next)
	ix.swap(c)
	ix.log.Info("index rebuilt",
		"generation", c.generation,
		"documents", len(docs),
		"rebuilt_sources", len(stale),
		"force", force)

	ix.persist(ctx, c)

	if len(loadErrs) > 0 {
		return errors.Join(loadErrs...)
	}
	return nil
}

// build runs the builders for stale sources on the pool and returns their
// documents keyed by platform.
func (ix *Index) build(ctx context.Context, stale []registration, snaps map[ir.PlatformID]*schema.Snapshot) (map[ir.PlatformID][]ir.Document, error) {
	out := make(map[ir.PlatformID][]ir.Document, len(stale))
	if len(stale) == 0 {
		return out, nil
	}

	group := ix.pool.NewGroupContext(ctx)
	for _, r := range stale {
		snap := snaps[r.platform]
		group.SubmitErr(func() ([]ir.Document, error) {
			ix.builds.Add(1)
			docs := r.builder(snap)
			for i := range docs {
				if docs[i].Source == "" {
					docs[i].Source = r.platform
				}
			}
			return docs, nil
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, err
	}
	for i, r := range stale {
		out[r.platform] = results[i]
	}
	return out, nil
}

func (ix *Index) swap(c *corpus) {
	ix.current.Store(c)
}

func (ix *Index) loadPersisted(ctx context.Context) *corpus {
	if ix.cfg.Cache == nil {
		return nil
	}
	stored, err := ix.cfg.Cache.LoadCorpus(ctx)
	if err != nil {
		ix.log.Warn("ignoring persisted index", "error", err)
		return nil
	}
	if stored == nil {
		return nil
	}
	return newCorpus(ix.generation.Add(1), stored.Documents, stored.Versions)
}

func (ix *Index) persist(ctx context.Context, c *corpus) {
	if ix.cfg.Cache == nil {
		return
	}
	digest, err := ix.cfg.Cache.SaveCorpus(ctx, c.docs, c.versions)
	if err != nil {
		ix.log.Error("failed to persist index", "generation", c.generation, "error", err)
		return
	}
	ix.log.Debug("index persisted", "generation", c.generation, "digest", digest)
}

// Clear drops the in-memory corpus and the persisted cache.
func (ix *Index) Clear(ctx context.Context) error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	ix.current.Store(nil)
	ix.results.DeleteAll()
	if ix.cfg.Cache != nil {
		if err := ix.cfg.Cache.Clear(ctx); err != nil {
			return fmt.Errorf("clear index cache: %w", err)
		}
	}
	ix.log.Info("index cleared")
	return nil
}
