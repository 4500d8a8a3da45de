// Package qerr defines the closed error taxonomy surfaced to huntql callers.
//
// Every rejection produced by the schema store, guardrails, index or query
// builder is an *Error carrying one of the Kind constants below. Callers
// inspect errors with KindOf or the Is* helpers, which use errors.As and so
// see through %w wrapping.
package qerr

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Kind categorizes an error. The string values are part of the response
// contract and must not change.
type Kind string

const (
	// KindSchemaLoad indicates a schema source is missing, corrupt or empty.
	KindSchemaLoad Kind = "SchemaLoadError"

	// KindUnknownDataset indicates a dataset (or platform) name did not resolve.
	KindUnknownDataset Kind = "UnknownDatasetError"

	// KindUnknownField indicates a field name did not resolve in its dataset.
	KindUnknownField Kind = "UnknownFieldError"

	// KindLimitExceeded indicates a result limit outside (0, max].
	KindLimitExceeded Kind = "LimitExceededError"

	// KindInvalidTimeWindow indicates a time window not of the form <int><h|d>.
	KindInvalidTimeWindow Kind = "InvalidTimeWindowError"

	// KindDangerousPattern indicates injection-like text in user input.
	KindDangerousPattern Kind = "DangerousPatternError"

	// KindAmbiguousInference indicates dataset inference found no strict winner.
	KindAmbiguousInference Kind = "AmbiguousInferenceError"

	// KindQueryBuild indicates an internal failure to produce a valid query.
	// It is the only kind that signals a defect rather than bad input.
	KindQueryBuild Kind = "QueryBuildError"
)

// Kinds lists every kind in the taxonomy.
func Kinds() []Kind {
	return []Kind{
		KindSchemaLoad,
		KindUnknownDataset,
		KindUnknownField,
		KindLimitExceeded,
		KindInvalidTimeWindow,
		KindDangerousPattern,
		KindAmbiguousInference,
		KindQueryBuild,
	}
}

// Recoverable reports whether the caller can fix the request and retry.
func (k Kind) Recoverable() bool {
	return k != KindQueryBuild && k != KindSchemaLoad
}

// LogLevel is the severity the service logs this kind at.
func (k Kind) LogLevel() slog.Level {
	switch k {
	case KindQueryBuild:
		return slog.LevelError
	case KindSchemaLoad:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Error is a structured huntql error.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Suggestions are ranked alternatives for unresolved names (at most three
	// for dataset and field lookups).
	Suggestions []string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithSuggestions returns e with suggestions attached.
func (e *Error) WithSuggestions(s []string) *Error {
	e.Suggestions = s
	return e
}

// WithDetail returns e with one detail attached.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var qe *Error
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// KindOf returns the kind of err. Errors outside the taxonomy are reported
// as KindQueryBuild so callers always see a member of the closed set.
func KindOf(err error) Kind {
	if qe, ok := As(err); ok {
		return qe.Kind
	}
	return KindQueryBuild
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	qe, ok := As(err)
	return ok && qe.Kind == kind
}

// IsUnknownDataset reports whether err is an UnknownDatasetError.
func IsUnknownDataset(err error) bool { return Is(err, KindUnknownDataset) }

// IsUnknownField reports whether err is an UnknownFieldError.
func IsUnknownField(err error) bool { return Is(err, KindUnknownField) }

// IsSchemaLoad reports whether err is a SchemaLoadError.
func IsSchemaLoad(err error) bool { return Is(err, KindSchemaLoad) }

// IsAmbiguousInference reports whether err is an AmbiguousInferenceError.
func IsAmbiguousInference(err error) bool { return Is(err, KindAmbiguousInference) }
