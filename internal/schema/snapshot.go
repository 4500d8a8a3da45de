package schema

import (
	"strings"
	"time"

	"github.com/roach88/huntql/internal/ir"
)

// Snapshot is an immutable view of one loaded schema version.
// Readers hold a *Snapshot for the duration of a request and never observe
// a refresh half-applied.
type Snapshot struct {
	platform ir.PlatformID
	version  ir.SchemaVersion
	content  ir.SchemaContent
	loadedAt time.Time

	byName map[string]int // exact name
	byFold map[string]int // lower-cased name and aliases
}

func newSnapshot(platform ir.PlatformID, version ir.SchemaVersion, content ir.SchemaContent, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		platform: platform,
		version:  version,
		content:  content,
		loadedAt: loadedAt,
		byName:   make(map[string]int, len(content.Datasets)),
		byFold:   make(map[string]int, len(content.Datasets)),
	}
	for i, ds := range content.Datasets {
		s.byName[ds.Name] = i
		s.byFold[strings.ToLower(ds.Name)] = i
	}
	for i, ds := range content.Datasets {
		for _, alias := range ds.Aliases {
			if _, taken := s.byFold[strings.ToLower(alias)]; !taken {
				s.byFold[strings.ToLower(alias)] = i
			}
		}
	}
	return s
}

// NewSnapshot builds a snapshot directly from content. Intended for tests and
// callers that hold schema content outside a Store; content is validated.
func NewSnapshot(platform ir.PlatformID, content ir.SchemaContent) (*Snapshot, error) {
	if errs := Validate(&content); len(errs) > 0 {
		return nil, validationFailure(platform, errs)
	}
	version, err := ir.VersionOf(content)
	if err != nil {
		return nil, err
	}
	return newSnapshot(platform, version, content, time.Time{}), nil
}

// Platform returns the platform this schema belongs to.
func (s *Snapshot) Platform() ir.PlatformID { return s.platform }

// Version returns the content hash of this schema.
func (s *Snapshot) Version() ir.SchemaVersion { return s.version }

// LoadedAt returns when the snapshot was built. It is not part of identity.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Content returns the full schema content. Callers must not modify it.
func (s *Snapshot) Content() ir.SchemaContent { return s.content }

// Datasets returns datasets in declaration order. Callers must not modify it.
func (s *Snapshot) Datasets() []ir.Dataset { return s.content.Datasets }

// DatasetNames returns dataset names in declaration order.
func (s *Snapshot) DatasetNames() []string {
	names := make([]string, len(s.content.Datasets))
	for i, ds := range s.content.Datasets {
		names[i] = ds.Name
	}
	return names
}

// Dataset looks up a dataset by exact name.
func (s *Snapshot) Dataset(name string) (ir.Dataset, bool) {
	i, ok := s.byName[name]
	if !ok {
		return ir.Dataset{}, false
	}
	return s.content.Datasets[i], true
}

// LookupFold looks up a dataset by case-insensitive name or alias.
func (s *Snapshot) LookupFold(name string) (ir.Dataset, bool) {
	i, ok := s.byFold[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ir.Dataset{}, false
	}
	return s.content.Datasets[i], true
}
