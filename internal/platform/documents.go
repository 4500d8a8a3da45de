package platform

import (
	"strings"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/schema"
)

type docLabels struct {
	dataset string // "Table", "Search type", "Dataset"
	dialect string
}

// buildDocuments emits, in order: one field document per dataset, one
// operator document per operator reference, one example document per
// example and one best_practice document per category.
func buildDocuments(id ir.PlatformID, labels docLabels, snap *schema.Snapshot) []ir.Document {
	if snap == nil {
		return nil
	}
	content := snap.Content()
	docs := make([]ir.Document, 0, len(content.Datasets)+len(content.Operators)+len(content.Examples)+len(content.BestPractices))

	for _, ds := range content.Datasets {
		docs = append(docs, ir.Document{
			ID:     ir.DocumentID(id, ir.KindField, ds.Name),
			Source: id,
			Kind:   ir.KindField,
			Text:   datasetText(labels, ds),
		})
	}
	for _, op := range content.Operators {
		var b strings.Builder
		b.WriteString(labels.dialect + " operator " + op.Name)
		if op.Description != "" {
			b.WriteString(": " + op.Description)
		}
		if op.Example != "" {
			b.WriteString("\nExample: " + op.Example)
		}
		docs = append(docs, ir.Document{
			ID:     ir.DocumentID(id, ir.KindOperator, op.Name),
			Source: id,
			Kind:   ir.KindOperator,
			Text:   b.String(),
		})
	}
	for _, ex := range content.Examples {
		var b strings.Builder
		b.WriteString(ex.Title)
		if ex.Description != "" {
			b.WriteString(": " + ex.Description)
		}
		b.WriteString("\n" + ex.Query)
		docs = append(docs, ir.Document{
			ID:     ir.DocumentID(id, ir.KindExample, ex.Title),
			Source: id,
			Kind:   ir.KindExample,
			Text:   b.String(),
		})
	}
	for _, bp := range content.BestPractices {
		docs = append(docs, ir.Document{
			ID:     ir.DocumentID(id, ir.KindBestPractice, bp.Category),
			Source: id,
			Kind:   ir.KindBestPractice,
			Text:   labels.dialect + " " + bp.Category + " best practices:\n- " + strings.Join(bp.Items, "\n- "),
		})
	}
	return docs
}

func datasetText(labels docLabels, ds ir.Dataset) string {
	var b strings.Builder
	b.WriteString(labels.dataset + " " + ds.Name)
	if ds.Description != "" {
		b.WriteString(": " + ds.Description)
	}
	if len(ds.Aliases) > 0 {
		b.WriteString("\nAliases: " + strings.Join(ds.Aliases, ", "))
	}
	b.WriteString("\nFields:")
	for _, f := range ds.Fields {
		b.WriteString("\n- " + f.Name + " (" + string(f.Type))
		if len(f.Values) > 0 {
			b.WriteString(": " + strings.Join(f.Values, " | "))
		}
		b.WriteString(")")
		if f.Description != "" {
			b.WriteString(" " + f.Description)
		}
	}
	if len(ds.Operators) > 0 {
		b.WriteString("\nOperators: " + strings.Join(ds.Operators, ", "))
	}
	return b.String()
}
