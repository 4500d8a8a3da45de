// Package queryast provides the platform-neutral query representation that
// sits between the query builder and the dialect renderers.
//
// ARCHITECTURE:
//
//	[guardrails + intent] → [QueryAST] → [KQL renderer]
//	                                   → [CBC renderer]
//	                                   → [XQL renderer]
//	                                   → [S1QL renderer]
//
// An AST names one dataset, an ordered projection, an ordered predicate list
// joined by a single boolean mode, an optional time window, an optional sort
// key and a positive row limit. Every identifier in a validated AST exists in
// the dataset it was validated against, so renderers never look anything up.
//
// NEUTRAL OPERATORS:
//
// Predicates use one operator vocabulary for every dialect (==, !=, =~,
// contains, startswith, endswith, in, >, >=, <, <=, matches). ParseOperator
// accepts the spellings users and the dialects themselves tend to use
// ("=", "equals", "has", "contains:anycase", "gte", ...). Each renderer maps
// the neutral operator to its own syntax.
//
// DETERMINISM:
//
// An AST has a canonical encoding (Canonical) and a content digest (Digest).
// Two requests that normalize to the same AST produce the same digest and,
// because renderers are pure, byte-identical query text.
package queryast
