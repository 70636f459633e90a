package models

import "fmt"

// SemanticRequest is a semantic snippet search request.
// A nil Limit means the server default applies; an explicit zero yields an empty result.
type SemanticRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

// NewSemanticRequest builds a request with an explicit limit.
func NewSemanticRequest(query string, limit int) *SemanticRequest {
	return &SemanticRequest{Query: query, Limit: &limit}
}

// ResolveLimit returns the effective limit: defaultLimit when unset, capped at maxLimit.
// Returns an error for a negative limit.
func (r *SemanticRequest) ResolveLimit(defaultLimit, maxLimit int) (int, error) {
	if r.Limit == nil {
		return defaultLimit, nil
	}
	limit := *r.Limit
	if limit < 0 {
		return 0, fmt.Errorf("limit must not be negative, got %d", limit)
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}
