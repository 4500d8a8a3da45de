package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/huntql/internal/config"
	"github.com/roach88/huntql/internal/index"
	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/logging"
	"github.com/roach88/huntql/internal/platform"
	"github.com/roach88/huntql/internal/schema"
	"github.com/roach88/huntql/internal/schemasrc"
	"github.com/roach88/huntql/internal/schemasrc/builtin"
	"github.com/roach88/huntql/internal/service"
	"github.com/roach88/huntql/internal/store"
)

// app is one initialised service plus the resources it holds.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	svc   *service.Service
	cache *store.Store
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openApp loads config, opens the corpus cache and initialises the service.
// Logs go to errw. The caller must Close the app.
func openApp(ctx context.Context, opts *RootOptions, errw io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := logging.New(errw, opts.Verbose || cfg.Logging.Verbose)

	a := &app{cfg: cfg, log: log}

	var cache index.Cache
	if path := cfg.CachePath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create cache directory", err)
		}
		st, err := store.OpenContext(ctx, path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open index cache", err)
		}
		log.Debug("index cache opened", "path", st.Path())
		a.cache = st
		cache = st
	}

	svc, err := service.New(service.Config{
		Logger:         log,
		Platforms:      platform.All(cfg.Limits()),
		Sources:        schemaSources(cfg),
		Cache:          cache,
		MinScore:       cfg.Index.MinScore,
		BuildPoolSize:  cfg.Index.BuildPoolSize,
		SearchCacheTTL: cfg.GetSearchCacheTTL(),
		HintLimit:      cfg.Builder.HintLimit,
	})
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create service", err)
	}
	a.svc = svc

	if err := svc.Init(ctx); err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to initialise", err)
	}
	for _, id := range svc.Degraded() {
		log.Warn("platform unavailable", "platform", id)
	}
	return a, nil
}

// schemaSources uses the configured directory of each platform, falling back
// to the embedded schema.
func schemaSources(cfg *config.Config) map[ir.PlatformID]schema.Source {
	out := make(map[ir.PlatformID]schema.Source)
	for _, id := range ir.AllPlatforms() {
		if dir := cfg.SchemaDir(id); dir != "" {
			out[id] = schemasrc.NewDir(dir)
			continue
		}
		out[id] = builtin.Source(id)
	}
	return out
}

func (a *app) Close() {
	if a.svc != nil {
		a.svc.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("failed to close index cache", "error", err)
		}
	}
}
