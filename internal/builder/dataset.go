package builder

import (
	"slices"

	"github.com/roach88/huntql/internal/guardrail"
	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
)

// resolveDataset picks the dataset for a build.
//
// An explicit name goes through the guardrail. Otherwise the fields the
// request names decide, with intent breaking ties between equally good
// datasets. Without fields, intent keywords and then retrieval hints are
// consulted before falling back to the platform default.
func (b *Builder) resolveDataset(st *build) error {
	ds, err := b.chooseDataset(st)
	if err != nil {
		return err
	}
	st.ds = ds
	st.ast.Platform = b.Platform()
	st.ast.Dataset = ds.Name
	return nil
}

func (b *Builder) chooseDataset(st *build) (ir.Dataset, error) {
	if name := st.params.Dataset; name != "" {
		ds, err := b.cfg.Guard.ResolveDataset(st.snap, name)
		if err != nil {
			return ir.Dataset{}, err
		}
		if ds.Name != name {
			st.warn("dataset %q resolved to %s", name, ds.Name)
		}
		return ds, nil
	}

	fromIntent, how := b.intentDataset(st)

	if fields := requestedFields(st.params); len(fields) > 0 {
		ds, err := guardrail.InferDataset(fields, st.snap.Datasets())
		if err == nil {
			st.warn("dataset %s inferred from requested fields", ds.Name)
			return ds, nil
		}
		qe, ok := qerr.As(err)
		if !ok || fromIntent == "" || !slices.Contains(qe.Suggestions, fromIntent) {
			return ir.Dataset{}, err
		}
		ds, _ = st.snap.Dataset(fromIntent)
		st.warn("dataset %s chosen among %d equally matching datasets from %s", ds.Name, len(qe.Suggestions), how)
		return ds, nil
	}

	if fromIntent != "" {
		ds, _ := st.snap.Dataset(fromIntent)
		st.warn("dataset %s inferred from %s", ds.Name, how)
		return ds, nil
	}

	def := b.profile.DefaultDataset
	ds, ok := st.snap.Dataset(def)
	if !ok {
		return ir.Dataset{}, qerr.New(qerr.KindAmbiguousInference, "no dataset given and default %s is not in the %s schema", def, b.Platform()).
			WithSuggestions(st.snap.DatasetNames())
	}
	st.warn("no dataset given; defaulted to %s", ds.Name)
	return ds, nil
}

// intentDataset returns the dataset intent points at, and how it was found.
// Only datasets present in the snapshot are returned.
func (b *Builder) intentDataset(st *build) (string, string) {
	if name, ok := b.profile.DatasetHint(st.intent.words); ok {
		if _, exists := st.snap.Dataset(name); exists {
			return name, "intent keywords"
		}
	}
	byDoc := make(map[string]string, len(st.snap.Datasets()))
	for _, ds := range st.snap.Datasets() {
		byDoc[ir.DocumentID(b.Platform(), ir.KindField, ds.Name)] = ds.Name
	}
	for _, h := range st.hints {
		if h.Kind != ir.KindField {
			continue
		}
		if name, ok := byDoc[h.ID]; ok {
			return name, "retrieval context"
		}
	}
	return "", ""
}

// requestedFields lists every field the request names, filters first.
func requestedFields(p Params) []string {
	var out []string
	for _, f := range p.Filters {
		out = append(out, f.Field)
	}
	out = append(out, p.Fields...)
	if name, _, _ := cutSort(p.Sort); name != "" {
		out = append(out, name)
	}
	return out
}
