package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainSchema = "huntql/schema/v1"
	DomainAST    = "huntql/ast/v1"
	DomainCorpus = "huntql/corpus/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashCanonical hashes the canonical encoding of obj under domain.
func HashCanonical(domain string, obj IRObject) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// VersionOf computes the SchemaVersion of loaded content.
// The version depends only on content: no paths, mtimes or load times.
func VersionOf(content SchemaContent) (SchemaVersion, error) {
	h, err := HashCanonical(DomainSchema, content.canonical())
	if err != nil {
		return "", err
	}
	return SchemaVersion(h), nil
}

// MustVersionOf is like VersionOf but panics on error.
// Use only in tests or when content is known to be valid.
func MustVersionOf(content SchemaContent) SchemaVersion {
	v, err := VersionOf(content)
	if err != nil {
		panic(err)
	}
	return v
}

// CorpusDigest hashes an ordered document list together with the schema
// versions it was built from. Stored alongside a persisted corpus to detect
// truncation or tampering.
func CorpusDigest(docs []Document, versions map[PlatformID]SchemaVersion) (string, error) {
	docList := make(IRArray, len(docs))
	for i, d := range docs {
		docList[i] = IRObject{
			"id":     IRString(d.ID),
			"source": IRString(d.Source),
			"kind":   IRString(d.Kind),
			"text":   IRString(d.Text),
		}
	}
	vers := make(IRObject, len(versions))
	for p, v := range versions {
		vers[string(p)] = IRString(v)
	}
	return HashCanonical(DomainCorpus, IRObject{
		"documents":       docList,
		"source_versions": vers,
	})
}

func (c SchemaContent) canonical() IRObject {
	datasets := make(IRArray, len(c.Datasets))
	for i, d := range c.Datasets {
		datasets[i] = d.canonical()
	}
	examples := make(IRArray, len(c.Examples))
	for i, e := range c.Examples {
		examples[i] = IRObject{
			"title":       IRString(e.Title),
			"query":       IRString(e.Query),
			"description": IRString(e.Description),
		}
	}
	practices := make(IRArray, len(c.BestPractices))
	for i, bp := range c.BestPractices {
		practices[i] = IRObject{
			"category": IRString(bp.Category),
			"items":    Strings(bp.Items...),
		}
	}
	operators := make(IRArray, len(c.Operators))
	for i, op := range c.Operators {
		operators[i] = IRObject{
			"name":        IRString(op.Name),
			"description": IRString(op.Description),
			"example":     IRString(op.Example),
		}
	}
	return IRObject{
		"datasets":       datasets,
		"examples":       examples,
		"best_practices": practices,
		"operators":      operators,
	}
}

func (d Dataset) canonical() IRObject {
	fields := make(IRArray, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = IRObject{
			"name":        IRString(f.Name),
			"type":        IRString(f.Type),
			"values":      Strings(f.Values...),
			"description": IRString(f.Description),
			"default":     IRBool(f.Default),
		}
	}
	// Operator and alias order carries no meaning, so sort for stable hashes.
	ops := slices.Clone(d.Operators)
	slices.Sort(ops)
	aliases := slices.Clone(d.Aliases)
	slices.Sort(aliases)
	return IRObject{
		"name":        IRString(d.Name),
		"description": IRString(d.Description),
		"fields":      fields,
		"operators":   Strings(ops...),
		"aliases":     Strings(aliases...),
	}
}
