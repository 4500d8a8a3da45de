// Package schemasrc provides schema sources: directories of CUE, YAML and
// JSON schema files, embedded file systems, and in-memory content.
//
// Every source yields raw ir.SchemaContent. Validation, versioning and
// caching happen in the schema store.
package schemasrc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/huntql/internal/ir"
)

// Error codes for source failures.
const (
	ErrCodeNotFound    = "E101" // directory missing or not a directory
	ErrCodeNoFiles     = "E102" // no schema files found
	ErrCodeReadFailed  = "E103" // file read error
	ErrCodeParseFailed = "E104" // YAML/JSON/CUE decode error
)

// LoadError describes a source failure.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Extensions lists the file extensions a source reads, in no particular order.
var Extensions = []string{".cue", ".yaml", ".yml", ".json"}

// Dir reads schema files from one directory on disk.
//
// Files are read in lexical order and merged. Subdirectories are ignored.
// Symlinks that resolve outside the directory are skipped.
type Dir struct {
	path string
}

// NewDir creates a directory source. The path is cleaned but not resolved
// until Read.
func NewDir(dir string) *Dir {
	return &Dir{path: filepath.Clean(dir)}
}

// Name returns the directory path.
func (d *Dir) Name() string { return d.path }

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// Read loads and merges every schema file in the directory.
func (d *Dir) Read(ctx context.Context) (ir.SchemaContent, error) {
	info, err := os.Stat(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ir.SchemaContent{}, &LoadError{Code: ErrCodeNotFound, Path: d.path, Message: "schema directory not found", Err: err}
	}
	if err != nil {
		return ir.SchemaContent{}, &LoadError{Code: ErrCodeNotFound, Path: d.path, Message: "cannot access schema directory", Err: err}
	}
	if !info.IsDir() {
		return ir.SchemaContent{}, &LoadError{Code: ErrCodeNotFound, Path: d.path, Message: "not a directory"}
	}

	root, err := filepath.EvalSymlinks(d.path)
	if err != nil {
		return ir.SchemaContent{}, &LoadError{Code: ErrCodeNotFound, Path: d.path, Message: "cannot resolve schema directory", Err: err}
	}
	return readFS(ctx, os.DirFS(d.path), d.path, func(name string) bool {
		return within(root, filepath.Join(d.path, name))
	})
}

// within reports whether p resolves to a location inside root.
func within(root, p string) bool {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// FS reads schema files from one directory of a file system, typically an
// embed.FS of built-in schemas.
type FS struct {
	fsys fs.FS
	dir  string
	name string
}

// NewFS creates a source over dir inside fsys.
func NewFS(fsys fs.FS, dir string) *FS {
	return &FS{fsys: fsys, dir: dir, name: "embedded:" + dir}
}

// Name returns "embedded:<dir>".
func (s *FS) Name() string { return s.name }

// Read loads and merges every schema file in the directory.
func (s *FS) Read(ctx context.Context) (ir.SchemaContent, error) {
	sub, err := fs.Sub(s.fsys, s.dir)
	if err != nil {
		return ir.SchemaContent{}, &LoadError{Code: ErrCodeNotFound, Path: s.name, Message: "invalid directory", Err: err}
	}
	return readFS(ctx, sub, s.name, nil)
}

// Static serves fixed in-memory content.
type Static struct {
	name    string
	content ir.SchemaContent
}

// NewStatic creates a static source. An empty name means "static".
func NewStatic(name string, content ir.SchemaContent) *Static {
	if name == "" {
		name = "static"
	}
	return &Static{name: name, content: content}
}

// Name returns the source name.
func (s *Static) Name() string { return s.name }

// Read returns the content. It never fails.
func (s *Static) Read(context.Context) (ir.SchemaContent, error) {
	return s.content, nil
}

// readFS reads the schema files at the root of fsys in lexical order.
// allow, when non-nil, filters file names.
func readFS(ctx context.Context, fsys fs.FS, label string, allow func(name string) bool) (ir.SchemaContent, error) {
	var content ir.SchemaContent

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return content, &LoadError{Code: ErrCodeReadFailed, Path: label, Message: "cannot list directory", Err: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(Extensions, strings.ToLower(path.Ext(e.Name()))) {
			continue
		}
		if allow != nil && !allow(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	if len(files) == 0 {
		return content, &LoadError{Code: ErrCodeNoFiles, Path: label, Message: "no schema files found"}
	}
	slices.Sort(files)

	cueCtx := cuecontext.New()
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return content, err
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return content, &LoadError{Code: ErrCodeReadFailed, Path: path.Join(label, name), Message: "cannot read file", Err: err}
		}
		part, err := decodeFile(cueCtx, name, data)
		if err != nil {
			return content, &LoadError{Code: ErrCodeParseFailed, Path: path.Join(label, name), Message: err.Error(), Err: err}
		}
		content.Merge(part)
	}
	return content, nil
}

// decodeFile decodes one schema file by extension.
func decodeFile(cueCtx *cue.Context, name string, data []byte) (ir.SchemaContent, error) {
	if strings.EqualFold(path.Ext(name), ".cue") {
		v := cueCtx.CompileBytes(data, cue.Filename(name))
		return CompileSchema(v)
	}
	return DecodeYAML(data)
}

// DecodeYAML decodes YAML or JSON schema content. Unknown keys are rejected.
func DecodeYAML(data []byte) (ir.SchemaContent, error) {
	var content ir.SchemaContent
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&content); err != nil {
		if errors.Is(err, io.EOF) {
			return content, errors.New("empty schema file")
		}
		return content, err
	}
	return content, nil
}
