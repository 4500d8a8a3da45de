// Package builder assembles validated hunting queries from request
// parameters and free-text intent.
//
// Build runs the same pipeline for every platform:
//
//  1. Scan intent and string filter values for injection patterns
//  2. Resolve the dataset (explicit, or inferred from fields and intent)
//  3. Resolve projected and filtered fields and convert filter values
//  4. Apply the row limit
//  5. Apply the time window (explicit, or stated in intent)
//  6. Add predicates for indicators found in intent
//  7. Default the boolean mode to AND
//  8. Validate the AST and render it
//
// The first hard error stops the pipeline. A failed Build never returns a
// partial query. Everything Build decided on its own is reported as a
// warning.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/huntql/internal/guardrail"
	"github.com/roach88/huntql/internal/index"
	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/platform"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/queryast"
	"github.com/roach88/huntql/internal/schema"
)

// DefaultHintLimit is how many retrieval matches a build attaches.
const DefaultHintLimit = 5

// Schema supplies the snapshot a build validates against. *schema.Store
// implements it.
type Schema interface {
	Load(ctx context.Context, forceRefresh bool) (*schema.Snapshot, error)
}

// Searcher finds retrieval context for intent text. *index.Index
// implements it.
type Searcher interface {
	Search(query string, k int, source ir.PlatformID) []index.Match
}

type Config struct {
	Platform platform.Platform
	Schema   Schema
	Guard    *guardrail.Engine

	// Index is optional. Without it builds carry no hints and datasets are
	// never inferred from retrieval.
	Index Searcher

	Logger    *slog.Logger
	HintLimit int
}

func (c *Config) Validate() error {
	if c.Platform == nil {
		return fmt.Errorf("builder: platform is required")
	}
	if c.Schema == nil {
		return fmt.Errorf("builder: schema is required for %s", c.Platform.ID())
	}
	if c.Guard == nil {
		c.Guard = guardrail.New(guardrail.Options{})
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.HintLimit <= 0 {
		c.HintLimit = DefaultHintLimit
	}
	return nil
}

// Filter is one requested comparison. Value is a decoded JSON or YAML value:
// a string, number, bool or list.
type Filter struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    any    `json:"value" yaml:"value"`
}

// Params is a build request for one platform. Every field is optional.
type Params struct {
	Dataset     string   `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	Fields      []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Filters     []Filter `json:"filters,omitempty" yaml:"filters,omitempty"`
	Limit       *int     `json:"limit,omitempty" yaml:"limit,omitempty"`
	TimeWindow  string   `json:"time_window,omitempty" yaml:"time_window,omitempty"`
	Intent      string   `json:"natural_language_intent,omitempty" yaml:"natural_language_intent,omitempty"`
	BooleanMode string   `json:"boolean_mode,omitempty" yaml:"boolean_mode,omitempty"`

	// Sort is a field name, optionally prefixed with "-" or suffixed with
	// " desc" for descending order.
	Sort string `json:"sort,omitempty" yaml:"sort,omitempty"`
}

// Result is a successful build.
type Result struct {
	AST           queryast.AST
	Query         string
	Params        map[string]string
	Warnings      []string
	MatchedFields []string
	Hints         []index.Match
	SourceVersion ir.SchemaVersion
	Digest        string
}

// Builder builds queries for one platform. It is safe for concurrent use.
type Builder struct {
	cfg     Config
	log     *slog.Logger
	profile platform.Profile
}

func New(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		cfg:     cfg,
		log:     cfg.Logger.With("platform", cfg.Platform.ID()),
		profile: cfg.Platform.Profile(),
	}, nil
}

// Platform returns the platform this builder renders for.
func (b *Builder) Platform() ir.PlatformID { return b.cfg.Platform.ID() }

// build carries one request through the pipeline.
type build struct {
	snap     *schema.Snapshot
	params   Params
	intent   intent
	hints    []index.Match
	ds       ir.Dataset
	ast      queryast.AST
	warnings []string
	matched  []string
}

func (st *build) warn(format string, args ...any) {
	st.warnings = append(st.warnings, fmt.Sprintf(format, args...))
}

func (st *build) match(field string) {
	if !slices.Contains(st.matched, field) {
		st.matched = append(st.matched, field)
	}
}

// Build validates p against the current schema and renders a query.
func (b *Builder) Build(ctx context.Context, p Params) (*Result, error) {
	snap, err := b.cfg.Schema.Load(ctx, false)
	if err != nil {
		return nil, err
	}

	st := &build{snap: snap, params: p}
	steps := []func(*build) error{
		b.scan,
		b.resolveDataset,
		b.resolveFields,
		b.resolveFilters,
		b.resolveSort,
		b.applyLimit,
		b.applyTimeWindow,
		b.applyIndicators,
		b.applyMode,
	}
	for _, step := range steps {
		if err := step(st); err != nil {
			return nil, err
		}
	}

	if err := queryast.Validate(st.ast, st.ds); err != nil {
		return nil, err
	}
	out, err := b.cfg.Platform.Renderer().Render(st.ast)
	if err != nil {
		return nil, err
	}
	digest, err := st.ast.Digest()
	if err != nil {
		return nil, qerr.Wrap(qerr.KindQueryBuild, err, "hash query")
	}

	b.log.Debug("query built",
		"dataset", st.ds.Name,
		"predicates", len(st.ast.Predicates),
		"warnings", len(st.warnings),
		"digest", digest)

	return &Result{
		AST:           st.ast,
		Query:         out.Query,
		Params:        out.Params,
		Warnings:      nonNil(st.warnings),
		MatchedFields: nonNil(st.matched),
		Hints:         st.hints,
		SourceVersion: snap.Version(),
		Digest:        digest,
	}, nil
}

func (b *Builder) scan(st *build) error {
	if err := b.cfg.Guard.ScanDangerousPatterns(st.params.Intent); err != nil {
		return err
	}
	for _, f := range st.params.Filters {
		v, err := ir.ValueOf(f.Value)
		if err != nil {
			// Reported with the field once it is resolved.
			continue
		}
		for _, s := range stringValues(v) {
			if err := b.cfg.Guard.ScanDangerousPatterns(s); err != nil {
				return err
			}
		}
	}

	st.intent = parseIntent(st.params.Intent)
	if st.intent.text != "" && b.cfg.Index != nil {
		st.hints = b.cfg.Index.Search(st.intent.text, b.cfg.HintLimit, b.Platform())
	}
	if st.hints == nil {
		st.hints = []index.Match{}
	}
	return nil
}

func (b *Builder) resolveFields(st *build) error {
	fields := st.params.Fields
	if len(fields) == 0 {
		fields = st.ds.DefaultFields()
	}
	for _, name := range fields {
		f, err := b.cfg.Guard.ResolveField(st.ds, name)
		if err != nil {
			return err
		}
		if slices.Contains(st.ast.Fields, f.Name) {
			continue
		}
		st.ast.Fields = append(st.ast.Fields, f.Name)
		st.match(f.Name)
	}
	return nil
}

func (b *Builder) resolveFilters(st *build) error {
	for i, flt := range st.params.Filters {
		f, err := b.cfg.Guard.ResolveField(st.ds, flt.Field)
		if err != nil {
			return err
		}
		op, err := queryast.ParseOperator(flt.Operator)
		if err != nil {
			return qerr.Wrap(qerr.KindQueryBuild, err, "filter[%d] on %s", i, f.Name)
		}
		v, err := convertValue(f, op, flt.Value)
		if err != nil {
			return qerr.Wrap(qerr.KindQueryBuild, err, "filter[%d] on %s", i, f.Name)
		}
		st.ast.Predicates = append(st.ast.Predicates, queryast.Predicate{
			Field:    f.Name,
			Operator: op,
			Value:    v,
			Type:     f.Type,
		})
		st.match(f.Name)
	}
	return nil
}

func (b *Builder) resolveSort(st *build) error {
	name, desc, err := cutSort(st.params.Sort)
	if err != nil || name == "" {
		return err
	}
	f, err := b.cfg.Guard.ResolveField(st.ds, name)
	if err != nil {
		return err
	}
	st.ast.Sort = &queryast.SortKey{Field: f.Name, Descending: desc}
	st.match(f.Name)
	return nil
}

// cutSort splits "Field", "-Field", "Field asc" or "Field desc".
func cutSort(key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if rest, ok := strings.CutPrefix(key, "-"); ok {
		return strings.TrimSpace(rest), true, nil
	}
	name, dir, ok := strings.Cut(key, " ")
	if !ok {
		return key, false, nil
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "asc":
		return name, false, nil
	case "desc":
		return name, true, nil
	}
	return "", false, qerr.New(qerr.KindQueryBuild, "sort direction must be asc or desc, got %q", strings.TrimSpace(dir))
}

func (b *Builder) applyLimit(st *build) error {
	if st.params.Limit == nil {
		st.ast.Limit = b.profile.DefaultLimit
		return nil
	}
	n, err := guardrail.ValidateLimit(*st.params.Limit, b.profile.MaxLimit)
	if err != nil {
		return err
	}
	st.ast.Limit = n
	return nil
}

func (b *Builder) applyTimeWindow(st *build) error {
	explicit := strings.TrimSpace(st.params.TimeWindow) != ""
	switch {
	case explicit:
		d, err := guardrail.NormalizeTimeWindow(st.params.TimeWindow)
		if err != nil {
			return err
		}
		st.ast.TimeWindow = d
	case st.intent.window > 0:
		st.ast.TimeWindow = st.intent.window
	default:
		return nil
	}

	tf := b.profile.TimeField
	if tf == "" {
		// The dialect carries the window out of band.
		if !explicit {
			st.warn("time window %s taken from intent %q", guardrail.FormatTimeWindow(st.ast.TimeWindow), st.intent.phrase)
		}
		return nil
	}
	if !st.ds.HasField(tf) {
		if explicit {
			return qerr.New(qerr.KindQueryBuild, "dataset %s has no %s field to apply a time window to", st.ds.Name, tf)
		}
		st.warn("time window %q ignored: dataset %s has no %s field", st.intent.phrase, st.ds.Name, tf)
		st.ast.TimeWindow = 0
		return nil
	}
	st.ast.TimeField = tf
	st.match(tf)
	if !explicit {
		st.warn("time window %s taken from intent %q", guardrail.FormatTimeWindow(st.ast.TimeWindow), st.intent.phrase)
	}
	return nil
}

// applyIndicators turns recognised IOCs into predicates on the first
// candidate field the dataset has. Several values of one kind become a
// single "in", except substring kinds, which get one contains predicate per
// value. Fields already filtered explicitly are left alone.
func (b *Builder) applyIndicators(st *build) error {
	type group struct {
		kind   platform.IOCKind
		field  ir.Field
		values []string
	}
	var groups []*group
	byField := map[string]*group{}
	for _, ind := range st.intent.indicators {
		f, ok := b.profile.FieldFor(ind.kind, st.ds)
		if !ok {
			st.warn("%s indicator %q ignored: %s has no matching field", ind.kind, ind.value, st.ds.Name)
			continue
		}
		if b.filtered(st, f.Name) {
			continue
		}
		if ind.kind.Substring() {
			groups = append(groups, &group{kind: ind.kind, field: f, values: []string{ind.value}})
			continue
		}
		g, ok := byField[f.Name]
		if !ok {
			g = &group{kind: ind.kind, field: f}
			byField[f.Name] = g
			groups = append(groups, g)
		}
		g.values = append(g.values, ind.value)
	}

	for _, g := range groups {
		op := queryast.OpEq
		switch {
		case g.field.Type != ir.FieldString:
		case g.kind.Substring() && st.ds.AllowsOperator(string(queryast.OpContains)):
			op = queryast.OpContains
		case st.ds.AllowsOperator(string(b.profile.TextOperator)):
			op = b.profile.TextOperator
		}
		var raw any = g.values[0]
		if len(g.values) > 1 {
			op = queryast.OpIn
			raw = g.values
		}
		v, err := convertValue(g.field, op, raw)
		if err != nil {
			return qerr.Wrap(qerr.KindQueryBuild, err, "%s indicator on %s", g.kind, g.field.Name)
		}
		st.ast.Predicates = append(st.ast.Predicates, queryast.Predicate{
			Field:    g.field.Name,
			Operator: op,
			Value:    v,
			Type:     g.field.Type,
		})
		st.match(g.field.Name)
		st.warn("inferred %s filter %s %s %s from intent", g.kind, g.field.Name, op, strings.Join(g.values, ", "))
	}
	return nil
}

func (b *Builder) filtered(st *build, field string) bool {
	for _, p := range st.ast.Predicates {
		if p.Field == field {
			return true
		}
	}
	return false
}

func (b *Builder) applyMode(st *build) error {
	mode, err := queryast.ParseBooleanMode(st.params.BooleanMode)
	if err != nil {
		return qerr.Wrap(qerr.KindQueryBuild, err, "invalid boolean mode")
	}
	if mode == queryast.ModeUnset {
		mode = queryast.ModeAnd
		if len(st.ast.Predicates) > 1 {
			st.warn("boolean operator defaulted to AND")
		}
	}
	st.ast.Mode = mode
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
