// Package platform binds each supported hunting dialect to its renderer,
// retrieval document builder and query defaults.
//
// The set of platforms is closed: KQL (Microsoft Defender), CBC (Carbon
// Black Cloud), Cortex (XDR XQL) and S1 (SentinelOne Deep Visibility). A
// Registry holds one Platform per ID and is immutable after construction.
package platform

import (
	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/queryast"
	"github.com/roach88/huntql/internal/render"
	"github.com/roach88/huntql/internal/schema"
)

// Platform is one supported dialect.
type Platform interface {
	ID() ir.PlatformID
	Renderer() render.Renderer
	// Documents builds the retrieval corpus for one schema snapshot.
	// It is pure: the same snapshot always yields the same documents.
	Documents(snap *schema.Snapshot) []ir.Document
	Profile() Profile
}

// IOCKind classifies an indicator recognised in free-text intent.
type IOCKind string

const (
	IOCMD5     IOCKind = "md5"
	IOCSHA1    IOCKind = "sha1"
	IOCSHA256  IOCKind = "sha256"
	IOCIPv4    IOCKind = "ipv4"
	IOCIPv6    IOCKind = "ipv6"
	IOCProcess IOCKind = "process"
	IOCHost    IOCKind = "host"
	IOCUser    IOCKind = "user"
	IOCDomain  IOCKind = "domain"
	IOCPort    IOCKind = "port"

	// Command lines and file paths match part of a field value.
	IOCCommandLine IOCKind = "cmdline"
	IOCPath        IOCKind = "path"
)

// Substring reports whether indicators of kind k match part of a field value.
func (k IOCKind) Substring() bool {
	return k == IOCCommandLine || k == IOCPath
}

// Keyword maps an intent word to the dataset it most likely refers to.
type Keyword struct {
	Word    string
	Dataset string
}

// Profile carries per-platform query defaults.
type Profile struct {
	DefaultDataset string
	DefaultLimit   int
	MaxLimit       int

	// TimeField is the timestamp column used for the time window. Empty when
	// the dialect applies the window outside the query text.
	TimeField string

	// IOCFields lists candidate fields per indicator kind, in preference
	// order. The builder uses the first one the chosen dataset declares.
	IOCFields map[IOCKind][]string

	// Keywords are checked in order against intent text.
	Keywords []Keyword

	// TextOperator is used for predicates inferred from intent on text
	// fields. Other field types always use equality.
	TextOperator queryast.Operator
}

// FieldFor returns the first IOC candidate field present in ds.
func (p Profile) FieldFor(kind IOCKind, ds ir.Dataset) (ir.Field, bool) {
	for _, name := range p.IOCFields[kind] {
		if f, ok := ds.Field(name); ok {
			return f, true
		}
	}
	return ir.Field{}, false
}

// DatasetHint returns the dataset for the first keyword found among words.
func (p Profile) DatasetHint(words []string) (string, bool) {
	for _, kw := range p.Keywords {
		for _, w := range words {
			if w == kw.Word {
				return kw.Dataset, true
			}
		}
	}
	return "", false
}

// Option adjusts a platform at construction.
type Option func(*dialect)

// WithMaxLimit overrides the maximum row limit. Non-positive values are
// ignored. The default limit is lowered to fit when needed.
func WithMaxLimit(n int) Option {
	return func(d *dialect) {
		if n <= 0 {
			return
		}
		d.profile.MaxLimit = n
		if d.profile.DefaultLimit > n {
			d.profile.DefaultLimit = n
		}
	}
}

// WithDefaultLimit overrides the row limit used when a request omits one.
func WithDefaultLimit(n int) Option {
	return func(d *dialect) {
		if n > 0 && n <= d.profile.MaxLimit {
			d.profile.DefaultLimit = n
		}
	}
}

// dialect is the shared Platform implementation. Per-platform behaviour is
// carried by its fields.
type dialect struct {
	id       ir.PlatformID
	renderer render.Renderer
	profile  Profile
	labels   docLabels
}

func (d *dialect) ID() ir.PlatformID        { return d.id }
func (d *dialect) Renderer() render.Renderer { return d.renderer }
func (d *dialect) Profile() Profile          { return d.profile }

func (d *dialect) Documents(snap *schema.Snapshot) []ir.Document {
	return buildDocuments(d.id, d.labels, snap)
}

func newDialect(d *dialect, opts []Option) Platform {
	for _, opt := range opts {
		opt(d)
	}
	return d
}
