// Package similarity scores how closely two pieces of text match.
//
// The guardrail engine uses it to rank "did you mean" suggestions and the
// document index uses it to rank retrieval results. Both depend only on the
// Scorer interface so the scoring strategy can change without touching them.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// Scorer measures similarity between a query and a candidate.
type Scorer interface {
	// Score returns a similarity in [0,1]. 1 means identical after
	// normalization.
	Score(query, candidate string) float64

	// Distance returns the edit distance between the normalized inputs.
	// Used to break ties between equal scores.
	Distance(a, b string) int
}

// Normalize case-folds and trims s.
func Normalize(s string) string {
	// Casers are stateful, so one is created per call.
	return cases.Fold().String(strings.TrimSpace(s))
}

// Lexical combines whole-string edit similarity with fuzzy token coverage.
type Lexical struct {
	// MinTokenSimilarity is the floor below which a token pair counts as no
	// match at all. Zero means 0.6.
	MinTokenSimilarity float64
}

// Default is the scorer used when none is configured.
var Default Scorer = Lexical{}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true, "in": true,
	"on": true, "for": true, "to": true, "by": true, "with": true, "or": true,
	"is": true, "are": true, "from": true, "at": true, "me": true, "all": true,
	"show": true, "find": true, "get": true, "list": true, "that": true,
}

// Score implements Scorer.
func (l Lexical) Score(query, candidate string) float64 {
	q, c := Normalize(query), Normalize(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1
	}

	edit := editSimilarity(q, c)

	qTokens := terms(query)
	cTokens := terms(candidate)
	if len(qTokens) == 0 || len(cTokens) == 0 {
		return edit
	}

	floor := l.MinTokenSimilarity
	if floor == 0 {
		floor = 0.6
	}

	var covered float64
	matched := make(map[string]bool)
	for _, qt := range qTokens {
		best, bestTok := 0.0, ""
		for _, ct := range cTokens {
			s := editSimilarity(qt, ct)
			if s > best {
				best, bestTok = s, ct
			}
			if best == 1 {
				break
			}
		}
		if best >= floor {
			covered += best
			matched[bestTok] = true
		}
	}
	coverage := covered / float64(len(qTokens))
	density := float64(len(matched)) / float64(len(uniq(cTokens)))

	score := 0.8*coverage + 0.2*density
	if edit > score {
		score = edit
	}
	return clamp(score)
}

// Distance implements Scorer.
func (Lexical) Distance(a, b string) int {
	return levenshtein.ComputeDistance(Normalize(a), Normalize(b))
}

// Tokenize splits s into normalized tokens on non-alphanumeric boundaries and
// camelCase humps, dropping stopwords and single characters.
// "DeviceProcessEvents" yields [device process events].
func Tokenize(s string) []string {
	var tokens []string
	for _, word := range words(s) {
		tokens = append(tokens, humps(word)...)
	}
	return tokens
}

// terms is Tokenize plus every compound word that was split into humps, so
// "powershell" still matches "PowerShell" exactly.
func terms(s string) []string {
	var out []string
	for _, word := range words(s) {
		parts := humps(word)
		out = append(out, parts...)
		if len(parts) > 1 {
			if whole := Normalize(word); keep(whole) {
				out = append(out, whole)
			}
		}
	}
	return out
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func humps(word string) []string {
	var parts []string
	runes := []rune(word)
	start := 0
	emit := func(end int) {
		if tok := Normalize(string(runes[start:end])); keep(tok) {
			parts = append(parts, tok)
		}
		start = end
	}
	for i := 1; i < len(runes); i++ {
		r, prev := runes[i], runes[i-1]
		if !unicode.IsUpper(r) {
			continue
		}
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		// "fileName" -> file|Name, "HTTPServer" -> HTTP|Server
		if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
			emit(i)
		}
	}
	emit(len(runes))
	return parts
}

func keep(tok string) bool {
	return utf8.RuneCountInString(tok) >= 2 && !stopwords[tok]
}

func editSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

func uniq(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
