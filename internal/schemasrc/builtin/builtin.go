// Package builtin embeds the default schema files for every platform.
package builtin

import (
	"embed"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/schemasrc"
)

//go:embed kql cbc cortex s1
var files embed.FS

// Source returns the embedded schema source for platform.
func Source(platform ir.PlatformID) *schemasrc.FS {
	return schemasrc.NewFS(files, string(platform))
}
