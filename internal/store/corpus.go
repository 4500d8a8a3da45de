package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/huntql/internal/ir"
)

// Cache meta keys.
const (
	metaFormatVersion  = "format_version"
	metaBuilderVersion = "builder_version"
	metaDigest         = "digest"
	metaDocumentCount  = "document_count"
)

var (
	// ErrCorrupt reports a cache whose rows do not match the stored digest.
	ErrCorrupt = errors.New("corpus cache is corrupt")

	// ErrIncompatible reports a cache written with a different format.
	ErrIncompatible = errors.New("corpus cache format is incompatible")
)

// Corpus is a persisted document set and the schema versions it was built
// from.
type Corpus struct {
	Documents []ir.Document
	Versions  map[ir.PlatformID]ir.SchemaVersion
	Digest    string
}

// SaveCorpus replaces the stored corpus in a single transaction and returns
// the digest it recorded.
func (s *Store) SaveCorpus(ctx context.Context, docs []ir.Document, versions map[ir.PlatformID]ir.SchemaVersion) (string, error) {
	digest, err := ir.CorpusDigest(docs, versions)
	if err != nil {
		return "", fmt.Errorf("save corpus: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save corpus: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"documents", "source_versions", "cache_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return "", fmt.Errorf("save corpus: clear %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (seq, id, source, kind, text)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("save corpus: prepare: %w", err)
	}
	defer stmt.Close()

	for i, d := range docs {
		if _, err := stmt.ExecContext(ctx, i+1, d.ID, string(d.Source), string(d.Kind), d.Text); err != nil {
			return "", fmt.Errorf("save corpus: document %s: %w", d.ID, err)
		}
	}

	for source, version := range versions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO source_versions (source, version) VALUES (?, ?)
		`, string(source), string(version)); err != nil {
			return "", fmt.Errorf("save corpus: version %s: %w", source, err)
		}
	}

	meta := map[string]string{
		metaFormatVersion:  ir.CacheFormatVersion,
		metaBuilderVersion: ir.BuilderVersion,
		metaDigest:         digest,
		metaDocumentCount:  strconv.Itoa(len(docs)),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cache_meta (key, value) VALUES (?, ?)
		`, k, v); err != nil {
			return "", fmt.Errorf("save corpus: meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save corpus: commit: %w", err)
	}
	return digest, nil
}

// LoadCorpus returns the stored corpus, or (nil, nil) when nothing has been
// saved. A cache written by another format returns ErrIncompatible; rows that
// do not hash to the stored digest return ErrCorrupt.
func (s *Store) LoadCorpus(ctx context.Context) (*Corpus, error) {
	meta, err := s.readMeta(ctx)
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, nil
	}
	if meta[metaFormatVersion] != ir.CacheFormatVersion {
		return nil, fmt.Errorf("%w: format %q, want %q", ErrIncompatible, meta[metaFormatVersion], ir.CacheFormatVersion)
	}

	docs, err := s.readDocuments(ctx)
	if err != nil {
		return nil, err
	}
	versions, err := s.readVersions(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := strconv.Atoi(meta[metaDocumentCount]); err != nil || n != len(docs) {
		return nil, fmt.Errorf("%w: %d documents stored, %s recorded", ErrCorrupt, len(docs), meta[metaDocumentCount])
	}
	digest, err := ir.CorpusDigest(docs, versions)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if digest != meta[metaDigest] {
		return nil, fmt.Errorf("%w: digest mismatch", ErrCorrupt)
	}

	return &Corpus{Documents: docs, Versions: versions, Digest: digest}, nil
}

// Clear deletes the stored corpus.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear corpus: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"documents", "source_versions", "cache_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear corpus: %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clear corpus: commit: %w", err)
	}
	return nil
}

func (s *Store) readMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM cache_meta`)
	if err != nil {
		return nil, fmt.Errorf("query cache_meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan cache_meta: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache_meta: %w", err)
	}
	return meta, nil
}

// readDocuments returns documents in insertion order.
func (s *Store) readDocuments(ctx context.Context) ([]ir.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, kind, text
		FROM documents
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []ir.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func scanDocument(rows *sql.Rows) (ir.Document, error) {
	var d ir.Document
	var source, kind string
	if err := rows.Scan(&d.ID, &source, &kind, &d.Text); err != nil {
		return ir.Document{}, fmt.Errorf("scan document: %w", err)
	}
	d.Source = ir.PlatformID(source)
	d.Kind = ir.DocumentKind(kind)
	return d, nil
}

func (s *Store) readVersions(ctx context.Context) (map[ir.PlatformID]ir.SchemaVersion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, version FROM source_versions`)
	if err != nil {
		return nil, fmt.Errorf("query source_versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[ir.PlatformID]ir.SchemaVersion)
	for rows.Next() {
		var source, version string
		if err := rows.Scan(&source, &version); err != nil {
			return nil, fmt.Errorf("scan source_versions: %w", err)
		}
		versions[ir.PlatformID(source)] = ir.SchemaVersion(version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source_versions: %w", err)
	}
	return versions, nil
}
