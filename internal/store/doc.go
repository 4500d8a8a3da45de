// Package store persists the retrieval corpus in SQLite so a restart can
// reuse it without invoking any document builder.
//
// The cache holds three tables:
//   - documents: the ordered corpus (seq preserves insertion order)
//   - source_versions: the schema version each platform's documents came from
//   - cache_meta: cache format version, builder version and corpus digest
//
// # Consistency
//
// SaveCorpus replaces every table in one transaction, so a reader sees either
// the previous corpus or the new one. LoadCorpus recomputes the corpus digest
// and rejects rows that do not hash to the stored value.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Digests are computed via ir.CorpusDigest using RFC 8785 canonical JSON and
// SHA-256 with domain separation.
package store
