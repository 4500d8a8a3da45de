package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/roach88/huntql/internal/builder"
	"github.com/roach88/huntql/internal/index"
	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
)

// DefaultRetrieveK is the match count when a retrieval request omits k.
const DefaultRetrieveK = 5

// Request is a query build request.
type Request struct {
	Platform       string `json:"platform" yaml:"platform"`
	builder.Params `yaml:",inline"`
}

// Response holds either a query with its metadata or an error, never both.
type Response struct {
	Query    string     `json:"query,omitempty"`
	Metadata *Metadata  `json:"metadata,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
}

// Metadata describes how a query was built.
type Metadata struct {
	SourceVersion ir.SchemaVersion  `json:"source_version"`
	Warnings      []string          `json:"warnings"`
	MatchedFields []string          `json:"matched_fields"`
	Platform      ir.PlatformID     `json:"platform"`
	Dataset       string            `json:"dataset"`
	ASTDigest     string            `json:"ast_digest"`
	RequestID     string            `json:"request_id"`
	Params        map[string]string `json:"params,omitempty"`
	Context       []Match           `json:"context"`
}

// ErrorBody is a rejected request. Kind is always a taxonomy kind.
type ErrorBody struct {
	Kind        qerr.Kind `json:"kind"`
	Message     string    `json:"message"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// Match is one retrieval hit.
type Match struct {
	Source ir.PlatformID   `json:"source"`
	Kind   ir.DocumentKind `json:"kind"`
	Text   string          `json:"text"`
	Score  float64         `json:"score"`
}

// RetrievalRequest searches the document index. Source is an optional
// platform name; K defaults to DefaultRetrieveK.
type RetrievalRequest struct {
	Query  string `json:"query" yaml:"query"`
	K      int    `json:"k,omitempty" yaml:"k,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

type RetrievalResponse struct {
	Matches []Match    `json:"matches"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Build turns req into a query. Rejections are reported in Response.Error
// and logged at the level their kind calls for.
func (s *Service) Build(ctx context.Context, req Request) Response {
	id := s.ids.Generate()
	log := s.log.With("request_id", id, "platform", req.Platform)
	start := s.now()

	b, err := s.builderFor(req.Platform)
	if err != nil {
		return Response{Error: s.reject(ctx, log, "build rejected", err)}
	}
	res, err := b.Build(ctx, req.Params)
	if err != nil {
		return Response{Error: s.reject(ctx, log, "build rejected", err)}
	}

	log.Info("query built",
		"dataset", res.AST.Dataset,
		"warnings", len(res.Warnings),
		"context", len(res.Hints),
		"duration", s.now().Sub(start))

	return Response{
		Query: res.Query,
		Metadata: &Metadata{
			SourceVersion: res.SourceVersion,
			Warnings:      res.Warnings,
			MatchedFields: res.MatchedFields,
			Platform:      b.Platform(),
			Dataset:       res.AST.Dataset,
			ASTDigest:     res.Digest,
			RequestID:     id,
			Params:        res.Params,
			Context:       matches(res.Hints),
		},
	}
}

// Retrieve searches the document index.
func (s *Service) Retrieve(ctx context.Context, req RetrievalRequest) RetrievalResponse {
	var source ir.PlatformID
	if req.Source != "" {
		p, err := s.registry.Lookup(req.Source)
		if err != nil {
			log := s.log.With("request_id", s.ids.Generate())
			return RetrievalResponse{Matches: []Match{}, Error: s.reject(ctx, log, "retrieval rejected", err)}
		}
		source = p.ID()
	}
	k := req.K
	if k == 0 {
		k = DefaultRetrieveK
	}
	return RetrievalResponse{Matches: matches(s.index.Search(req.Query, k, source))}
}

// reject maps err onto the taxonomy and logs it. Errors outside the taxonomy
// become QueryBuildErrors.
func (s *Service) reject(ctx context.Context, log *slog.Logger, msg string, err error) *ErrorBody {
	qe, ok := qerr.As(err)
	if !ok {
		qe = qerr.Wrap(qerr.KindQueryBuild, err, "unexpected failure")
	}
	body := &ErrorBody{Kind: qe.Kind, Message: qe.Message, Suggestions: qe.Suggestions}
	if qe.Err != nil {
		body.Message += ": " + qe.Err.Error()
	}
	log.Log(ctx, qe.Kind.LogLevel(), msg, "kind", qe.Kind, "error", body.Message)
	return body
}

func matches(in []index.Match) []Match {
	out := make([]Match, len(in))
	for i, m := range in {
		out[i] = Match{Source: m.Source, Kind: m.Kind, Text: m.Text, Score: m.Score}
	}
	return out
}

// DatasetInfo summarises one dataset.
type DatasetInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Fields      int      `json:"fields"`
}

// Datasets lists a platform's datasets in schema order. A non-empty keyword
// keeps the datasets whose name, aliases or description contain it, ignoring
// case.
func (s *Service) Datasets(ctx context.Context, platformName, keyword string) ([]DatasetInfo, error) {
	snap, err := s.snapshot(ctx, platformName)
	if err != nil {
		return nil, err
	}
	out := make([]DatasetInfo, 0, len(snap.Datasets()))
	for _, ds := range snap.Datasets() {
		if !containsFold(keyword, append([]string{ds.Name, ds.Description}, ds.Aliases...)...) {
			continue
		}
		out = append(out, DatasetInfo{
			Name:        ds.Name,
			Description: ds.Description,
			Aliases:     ds.Aliases,
			Fields:      len(ds.Fields),
		})
	}
	return out, nil
}

// Fields returns a dataset's fields. The dataset name goes through the same
// guardrail as build requests, so typos come back with suggestions.
func (s *Service) Fields(ctx context.Context, platformName, dataset string) ([]ir.Field, error) {
	snap, err := s.snapshot(ctx, platformName)
	if err != nil {
		return nil, err
	}
	ds, err := s.guard.ResolveDataset(snap, dataset)
	if err != nil {
		return nil, err
	}
	return ds.Fields, nil
}

// Examples returns a platform's example queries. A non-empty category keeps
// the examples filed under it, ignoring case.
func (s *Service) Examples(ctx context.Context, platformName, category string) ([]ir.Example, error) {
	snap, err := s.snapshot(ctx, platformName)
	if err != nil {
		return nil, err
	}
	out := []ir.Example{}
	for _, ex := range snap.Content().Examples {
		if category == "" || strings.EqualFold(ex.Category, category) {
			out = append(out, ex)
		}
	}
	return out, nil
}

// Operators returns a platform's operator reference.
func (s *Service) Operators(ctx context.Context, platformName string) ([]ir.OperatorRef, error) {
	snap, err := s.snapshot(ctx, platformName)
	if err != nil {
		return nil, err
	}
	return append([]ir.OperatorRef{}, snap.Content().Operators...), nil
}

// BestPractices returns a platform's hunting guidance, optionally limited to
// one category.
func (s *Service) BestPractices(ctx context.Context, platformName, category string) ([]ir.BestPractice, error) {
	snap, err := s.snapshot(ctx, platformName)
	if err != nil {
		return nil, err
	}
	out := []ir.BestPractice{}
	for _, bp := range snap.Content().BestPractices {
		if category == "" || strings.EqualFold(bp.Category, category) {
			out = append(out, bp)
		}
	}
	return out, nil
}

func containsFold(keyword string, texts ...string) bool {
	if keyword == "" {
		return true
	}
	keyword = strings.ToLower(keyword)
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), keyword) {
			return true
		}
	}
	return false
}
