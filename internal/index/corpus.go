package index

import (
	"maps"

	"github.com/roach88/huntql/internal/ir"
)

// corpus is one immutable generation of the index. It is swapped in whole
// and never modified afterwards.
type corpus struct {
	generation uint64
	docs       []ir.Document
	bySource   map[ir.PlatformID][]int // positions in docs, ascending
	versions   map[ir.PlatformID]ir.SchemaVersion
}

func newCorpus(generation uint64, docs []ir.Document, versions map[ir.PlatformID]ir.SchemaVersion) *corpus {
	c := &corpus{
		generation: generation,
		docs:       docs,
		bySource:   make(map[ir.PlatformID][]int),
		versions:   maps.Clone(versions),
	}
	if c.versions == nil {
		c.versions = make(map[ir.PlatformID]ir.SchemaVersion)
	}
	for i, d := range docs {
		c.bySource[d.Source] = append(c.bySource[d.Source], i)
	}
	return c
}

// documentsFor returns the documents built for source, in insertion order.
func (c *corpus) documentsFor(source ir.PlatformID) []ir.Document {
	idx := c.bySource[source]
	out := make([]ir.Document, len(idx))
	for i, j := range idx {
		out[i] = c.docs[j]
	}
	return out
}

// current reports whether c was built from exactly these versions.
func (c *corpus) current(versions map[ir.PlatformID]ir.SchemaVersion) bool {
	return maps.Equal(c.versions, versions)
}
