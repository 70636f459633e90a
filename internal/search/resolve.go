package search

import (
	"github.com/hyperjump/kensaku/internal/query"
	"github.com/hyperjump/kensaku/internal/vector"
)

// resolvedQuery is the embedding target and payload filter derived from a raw query.
type resolvedQuery struct {
	target   string
	filter   vector.Filter
	filtered bool
}

// resolveQuery parses raw and extracts its target. A parse failure or a query
// without free text is a user error.
func resolveQuery(raw string) (*resolvedQuery, error) {
	parsed, err := query.Parse(raw)
	if err != nil {
		return nil, userError("invalid query", err)
	}
	target, ok := parsed.Target()
	if !ok {
		return nil, ErrEmptySearch
	}
	filter := vector.Filter{
		Repos: parsed.Repos,
		Langs: parsed.Langs,
		Paths: parsed.Paths,
		Refs:  parsed.Branches,
	}
	return &resolvedQuery{
		target:   target,
		filter:   filter,
		filtered: parsed.HasFilters(),
	}, nil
}
