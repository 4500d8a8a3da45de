package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/platform"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/schema"
	"github.com/roach88/huntql/internal/store"
	"github.com/roach88/huntql/internal/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	sources map[ir.PlatformID]*testutil.FakeSource
	stores  map[ir.PlatformID]*schema.Store
	calls   map[ir.PlatformID]*atomic.Int64
}

func newFixture(t *testing.T, platforms ...ir.PlatformID) *fixture {
	t.Helper()
	f := &fixture{
		sources: map[ir.PlatformID]*testutil.FakeSource{},
		stores:  map[ir.PlatformID]*schema.Store{},
		calls:   map[ir.PlatformID]*atomic.Int64{},
	}
	for _, p := range platforms {
		src := testutil.NewFakeSource(string(p), testutil.Schema(p))
		st, err := schema.New(schema.Config{Platform: p, Source: src, Logger: discard()})
		require.NoError(t, err)
		f.sources[p] = src
		f.stores[p] = st
		f.calls[p] = &atomic.Int64{}
	}
	return f
}

// register adds every fixture platform, using the real document builders.
func (f *fixture) register(ix *Index) {
	for _, p := range platform.All(nil) {
		st, ok := f.stores[p.ID()]
		if !ok {
			continue
		}
		calls := f.calls[p.ID()]
		build := p.Documents
		ix.RegisterSource(p.ID(), st, func(snap *schema.Snapshot) []ir.Document {
			calls.Add(1)
			return build(snap)
		})
	}
}

func newTestIndex(t *testing.T, cache Cache) *Index {
	t.Helper()
	ix, err := New(Config{Logger: discard(), Cache: cache})
	require.NoError(t, err)
	t.Cleanup(ix.Close)
	return ix
}

func openCache(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultMinScore, cfg.MinScore)
	assert.Equal(t, DefaultBuildPoolSize, cfg.BuildPoolSize)
	assert.NotNil(t, cfg.Scorer)
	assert.NotNil(t, cfg.Logger)

	bad := Config{MinScore: 1.5}
	assert.Error(t, bad.Validate())
}

func TestSearch_EmptyIndex(t *testing.T) {
	ix := newTestIndex(t, nil)

	got := ix.Search("process events", 5, "")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEnsureIndex_BuildsEverySource(t *testing.T) {
	f := newFixture(t, ir.PlatformKQL, ir.PlatformS1)
	ix := newTestIndex(t, nil)
	f.register(ix)

	require.NoError(t, ix.EnsureIndex(context.Background(), false))

	assert.EqualValues(t, 1, f.calls[ir.PlatformKQL].Load())
	assert.EqualValues(t, 1, f.calls[ir.PlatformS1].Load())
	st := ix.Stats()
	assert.Positive(t, st.BySource[ir.PlatformKQL])
	assert.Positive(t, st.BySource[ir.PlatformS1])
	assert.Equal(t, f.stores[ir.PlatformKQL].Version(), st.Versions[ir.PlatformKQL])
	assert.Equal(t, []ir.PlatformID{ir.PlatformKQL, ir.PlatformS1}, st.Sources)
}

func TestEnsureIndex_UnchangedVersionsSkipBuilders(t *testing.T) {
	f := newFixture(t, ir.PlatformKQL, ir.PlatformCBC)
	ix := newTestIndex(t, nil)
	f.register(ix)
	ctx := context.Background()
	require.NoError(t, ix.EnsureIndex(ctx, false))
	gen := ix.Stats().Generation
	reads := f.sources[ir.PlatformKQL].Reads()

	require.NoError(t, ix.EnsureIndex(ctx, false))

	assert.EqualValues(t, 2, ix.BuilderCalls())
	assert.Equal(t, gen, ix.Stats().Generation)
	assert.Equal(t, reads, f.sources[ir.PlatformKQL].Reads(), "no schema reads on reuse")
}

func TestEnsureIndex_ForceRebuildsEverything(t *testing.T) {
	f := newFixture(t, ir.PlatformKQL, ir.PlatformCBC)
	ix := newTestIndex(t, nil)
	f.register(ix)
	ctx := context.Background()
	require.NoError(t, ix.EnsureIndex(ctx, false))

	require.NoError(t, ix.EnsureIndex(ctx, true))

	assert.EqualValues(t, 2, f.calls[ir.PlatformKQL].Load())
	assert.EqualValues(t, 2, f.calls[ir.PlatformCBC].Load())
}

func TestEnsureIndex_RebuildsOnlyChangedSource(t *testing.T) {
	f := newFixture(t, ir.PlatformKQL, ir.PlatformCBC)
	ix := newTestIndex(t, nil)
	f.register(ix)
	ctx := context.Background()
	require.NoError(t, ix.EnsureIndex(ctx, false))
	cbcBefore := ix.Search("Office spawning a shell", 1, ir.PlatformCBC)
	require.Len(t, cbcBefore, 1)

	changed := testutil.KQLSchema()
	changed.Examples = append(changed.Examples, ir.Example{Title: "Beaconing intervals", Query: "DeviceNetworkEvents | summarize count() by RemoteIP"})
	f.sources[ir.PlatformKQL].Set(changed)
	_, err := f.stores[ir.PlatformKQL].Load(ctx, true)
	require.NoError(t, err)

	require.NoError(t, ix.EnsureIndex(ctx, false))

	assert.EqualValues(t, 2, f.calls[ir.PlatformKQL].Load())
	assert.EqualValues(t, 1, f.calls[ir.PlatformCBC].Load())
	assert.Equal(t, cbcBefore, ix.Search("Office spawning a shell", 1, ir.PlatformCBC))
	hits := ix.Search("beaconing intervals", 1, ir.PlatformKQL)
	require.Len(t, hits, 1)
	assert.Equal(t, "kql:example:beaconing-intervals", hits[0].ID)
}

func TestEnsureIndex_PersistedCacheSkipsBuildersAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	f1 := newFixture(t, ir.PlatformKQL, ir.PlatformCortex)
	first := newTestIndex(t, openCache(t, path))
	f1.register(first)
	require.NoError(t, first.EnsureIndex(ctx, false))
	want := first.Search("process hash", 3, "")
	require.NotEmpty(t, want)

	f2 := newFixture(t, ir.PlatformKQL, ir.PlatformCortex)
	second := newTestIndex(t, openCache(t, path))
	f2.register(second)

	require.NoError(t, second.EnsureIndex(ctx, false))

	assert.Zero(t, second.BuilderCalls())
	assert.Equal(t, want, second.Search("process hash", 3, ""))
}

func TestEnsureIndex_PersistedCacheWithChangedSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	f1 := newFixture(t, ir.PlatformKQL, ir.PlatformCortex)
	first := newTestIndex(t, openCache(t, path))
	f1.register(first)
	require.NoError(t, first.EnsureIndex(ctx, false))

	f2 := newFixture(t, ir.PlatformKQL, ir.PlatformCortex)
	changed := testutil.CortexSchema()
	changed.BestPractices = nil
	f2.sources[ir.PlatformCortex].Set(changed)
	second := newTestIndex(t, openCache(t, path))
	f2.register(second)

	require.NoError(t, second.EnsureIndex(ctx, false))

	assert.Zero(t, f2.calls[ir.PlatformKQL].Load())
	assert.EqualValues(t, 1, f2.calls[ir.PlatformCortex].Load())
	st := second.Stats()
	assert.Equal(t, first.Stats().BySource[ir.PlatformKQL], st.BySource[ir.PlatformKQL])
	assert.Equal(t, len(testutil.KQLSchema().BestPractices), st.ByKind[ir.KindBestPractice])
}

func TestEnsureIndex_CorruptCacheRebuilds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	tampered := &tamperingCache{Store: openCache(t, path)}

	f := newFixture(t, ir.PlatformKQL)
	ix := newTestIndex(t, tampered)
	f.register(ix)

	require.NoError(t, ix.EnsureIndex(ctx, false))

	assert.EqualValues(t, 1, ix.BuilderCalls())
}

type tamperingCache struct {
	*store.Store
}

func (c *tamperingCache) LoadCorpus(ctx context.Context) (*store.Corpus, error) {
	return nil, store.ErrCorrupt
}

type failingCache struct {
	*store.Store
	saves atomic.Int64
}

func (c *failingCache) SaveCorpus(ctx context.Context, docs []ir.Document, versions map[ir.PlatformID]ir.SchemaVersion) (string, error) {
	c.saves.Add(1)
	return "", errors.New("disk full")
}

func TestEnsureIndex_PersistFailureDoesNotFailRebuild(t *testing.T) {
	cache := &failingCache{Store: openCache(t, filepath.Join(t.TempDir(), "cache.db"))}
	f := newFixture(t, ir.PlatformKQL)
	ix := newTestIndex(t, cache)
	f.register(ix)

	require.NoError(t, ix.EnsureIndex(context.Background(), false))

	assert.EqualValues(t, 1, cache.saves.Load())
	assert.NotEmpty(t, ix.Search("DeviceProcessEvents", 1, ""))
}

func TestEnsureIndex_UnloadableSourceKeepsOthers(t *testing.T) {
	f := newFixture(t, ir.PlatformKQL, ir.PlatformS1)
	f.sources[ir.PlatformS1].Fail(errors.New("permission denied"))
	ix := newTestIndex(t, nil)
	f.register(ix)

	err := ix.EnsureIndex(context.Background(), false)

	require.Error(t, err)
	assert.True(t, qerr.IsSchemaLoad(err))
	st := ix.Stats()
	assert.Positive(t, st.BySource[ir.PlatformKQL])
	assert.Zero(t, st.BySource[ir.PlatformS1])
	assert.Zero(t, f.calls[ir.PlatformS1].Load())
}

func TestEnsureIndex_ConcurrentCallsShareOneBuild(t *testing.T) {
	f := newFixture(t, ir.PlatformKQL)
	ix := newTestIndex(t, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var calls atomic.Int64
	ix.RegisterSource(ir.PlatformKQL, f.stores[ir.PlatformKQL], func(snap *schema.Snapshot) []ir.Document {
		calls.Add(1)
		once.Do(func() { close(entered) })
		<-release
		return platform.KQL().Documents(snap)
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ix.EnsureIndex(ctx, false))
		}()
	}
	<-entered
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
}

func TestSearch_SeesOneCorpusDuringRebuilds(t *testing.T) {
	const perSource = 4
	f := newFixture(t, ir.PlatformKQL, ir.PlatformCBC)
	ix := newTestIndex(t, nil)

	// Every build pass tags its documents with the pass number, so a result
	// mixing two corpora carries two different tags.
	for _, p := range []ir.PlatformID{ir.PlatformKQL, ir.PlatformCBC} {
		var pass atomic.Int64
		ix.RegisterSource(p, f.stores[p], func(*schema.Snapshot) []ir.Document {
			n := pass.Add(1)
			docs := make([]ir.Document, perSource)
			for i := range docs {
				docs[i] = doc(p, ir.KindExample, fmt.Sprintf("pass%d-%d", n, i), "lateral movement via psexec")
			}
			return docs
		})
	}
	ctx := context.Background()
	require.NoError(t, ix.EnsureIndex(ctx, false))

	passOf := func(m Match) string {
		name := m.ID[strings.LastIndex(m.ID, ":")+1:]
		tag, _, _ := strings.Cut(name, "-")
		return tag
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := ix.Search("lateral movement psexec", 100, "")
				if !assert.Len(t, got, 2*perSource) {
					return
				}
				tag := passOf(got[0])
				for _, m := range got[1:] {
					if !assert.Equal(t, tag, passOf(m), "results from two corpora: %v", got) {
						return
					}
				}
			}
		}()
	}

	for range 25 {
		require.NoError(t, ix.EnsureIndex(ctx, true))
	}
	close(stop)
	wg.Wait()

	assert.EqualValues(t, 26, ix.Stats().Generation)
}

func TestRegisterSource_ReplacesPlatform(t *testing.T) {
	f := newFixture(t, ir.PlatformKQL)
	ix := newTestIndex(t, nil)
	f.register(ix)
	f.register(ix)

	require.NoError(t, ix.EnsureIndex(context.Background(), false))

	assert.Equal(t, []ir.PlatformID{ir.PlatformKQL}, ix.Stats().Sources)
	assert.EqualValues(t, 1, ix.BuilderCalls())
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	cache := openCache(t, path)
	f := newFixture(t, ir.PlatformKQL)
	ix := newTestIndex(t, cache)
	f.register(ix)
	require.NoError(t, ix.EnsureIndex(ctx, false))

	require.NoError(t, ix.Clear(ctx))

	assert.Empty(t, ix.Search("DeviceProcessEvents", 5, ""))
	assert.Zero(t, ix.Stats().Documents)
	stored, err := cache.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)

	require.NoError(t, ix.EnsureIndex(ctx, false))
	assert.EqualValues(t, 2, ix.BuilderCalls())
}
