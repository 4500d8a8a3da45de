package ir

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// PlatformID names one of the supported query dialects.
type PlatformID string

const (
	PlatformKQL    PlatformID = "kql"
	PlatformCBC    PlatformID = "cbc"
	PlatformCortex PlatformID = "cortex"
	PlatformS1     PlatformID = "s1"
)

// AllPlatforms lists the supported platforms in their canonical order.
func AllPlatforms() []PlatformID {
	return []PlatformID{PlatformKQL, PlatformCBC, PlatformCortex, PlatformS1}
}

// Valid reports whether p is a supported platform.
func (p PlatformID) Valid() bool {
	return slices.Contains(AllPlatforms(), p)
}

// SchemaVersion is an opaque content hash identifying one loaded schema.
// Identical content always yields the identical version.
type SchemaVersion string

// FieldType is the value type of a schema field.
type FieldType string

const (
	FieldString    FieldType = "string"
	FieldNumber    FieldType = "number"
	FieldEnum      FieldType = "enum"
	FieldIP        FieldType = "ip"
	FieldHash      FieldType = "hash"
	FieldTimestamp FieldType = "timestamp"
	FieldBool      FieldType = "bool"
)

var validFieldTypes = map[FieldType]bool{
	FieldString:    true,
	FieldNumber:    true,
	FieldEnum:      true,
	FieldIP:        true,
	FieldHash:      true,
	FieldTimestamp: true,
	FieldBool:      true,
}

// ParseFieldType normalizes a declared field type. An empty type means string.
func ParseFieldType(s string) (FieldType, error) {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return FieldString, nil
	}
	switch t {
	case "int", "long", "integer":
		return FieldNumber, nil
	case "boolean":
		return FieldBool, nil
	case "datetime":
		return FieldTimestamp, nil
	}
	if !validFieldTypes[t] {
		return "", fmt.Errorf("unknown field type %q", s)
	}
	return t, nil
}

// Ordered reports whether the type supports range comparisons.
func (t FieldType) Ordered() bool {
	return t == FieldNumber || t == FieldTimestamp
}

// Field is one queryable attribute of a dataset.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Values      []string  `json:"values,omitempty" yaml:"values,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Default     bool      `json:"default,omitempty" yaml:"default,omitempty"`
}

// AllowsValue reports whether v is acceptable for an enum field.
// Non-enum fields accept anything.
func (f Field) AllowsValue(v string) bool {
	if f.Type != FieldEnum || len(f.Values) == 0 {
		return true
	}
	return slices.Contains(f.Values, v)
}

// Dataset is a queryable unit of a platform: a KQL table, a CBC search type,
// a Cortex dataset or an S1 dataset.
type Dataset struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field  `json:"fields" yaml:"fields"`
	Operators   []string `json:"operators,omitempty" yaml:"operators,omitempty"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Field looks up a field by exact, case-sensitive name.
func (d Dataset) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasField reports whether the dataset declares the named field.
func (d Dataset) HasField(name string) bool {
	_, ok := d.Field(name)
	return ok
}

// FieldNames returns field names in declaration order.
func (d Dataset) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// DefaultFields returns the fields flagged for default projection.
func (d Dataset) DefaultFields() []string {
	var names []string
	for _, f := range d.Fields {
		if f.Default {
			names = append(names, f.Name)
		}
	}
	return names
}

// AllowsOperator reports whether op may be used against this dataset.
// An empty operator list allows every operator.
func (d Dataset) AllowsOperator(op string) bool {
	if len(d.Operators) == 0 {
		return true
	}
	return slices.Contains(d.Operators, op)
}

// Example is a reference query shipped with a platform schema. Category
// groups examples for listing, e.g. "process" or "network".
type Example struct {
	Title       string `json:"title" yaml:"title"`
	Query       string `json:"query" yaml:"query"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
}

// BestPractice groups hunting guidance under a category.
type BestPractice struct {
	Category string   `json:"category" yaml:"category"`
	Items    []string `json:"items" yaml:"items"`
}

// OperatorRef documents one dialect operator.
type OperatorRef struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
}

// SchemaContent is the full loaded content of one platform schema.
type SchemaContent struct {
	Datasets      []Dataset      `json:"datasets" yaml:"datasets"`
	Examples      []Example      `json:"examples,omitempty" yaml:"examples,omitempty"`
	BestPractices []BestPractice `json:"best_practices,omitempty" yaml:"best_practices,omitempty"`
	Operators     []OperatorRef  `json:"operators,omitempty" yaml:"operators,omitempty"`
}

// Merge appends other's entries to c. Used when a schema is split across files.
func (c *SchemaContent) Merge(other SchemaContent) {
	c.Datasets = append(c.Datasets, other.Datasets...)
	c.Examples = append(c.Examples, other.Examples...)
	c.BestPractices = append(c.BestPractices, other.BestPractices...)
	c.Operators = append(c.Operators, other.Operators...)
}

// DocumentKind classifies a retrieval document.
type DocumentKind string

const (
	KindField        DocumentKind = "field"
	KindExample      DocumentKind = "example"
	KindBestPractice DocumentKind = "best_practice"
	KindOperator     DocumentKind = "operator"
)

// Document is one immutable unit of retrievable text.
type Document struct {
	ID     string       `json:"id"`
	Source PlatformID   `json:"source"`
	Kind   DocumentKind `json:"kind"`
	Text   string       `json:"text"`
}

// DocumentID builds the stable identifier "<source>:<kind>:<slug>". Names
// with nothing to slug (operators such as "=~") use their hex encoding.
func DocumentID(source PlatformID, kind DocumentKind, name string) string {
	id := slug(name)
	if id == "" {
		id = "x" + hex.EncodeToString([]byte(name))
	}
	return fmt.Sprintf("%s:%s:%s", source, kind, id)
}

func slug(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '.' {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash && b.Len() > 0 {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
