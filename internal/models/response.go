package models

// SemanticResponse is the response for a semantic snippet search.
type SemanticResponse struct {
	Snippets  []*Snippet `json:"snippets"`
	Query     string     `json:"query,omitempty"`
	QueryTime int64      `json:"query_time_ms"`
}
