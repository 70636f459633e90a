// Package models defines core data structures for snippets, index candidates, and search requests.
package models

// Snippet is a decoded search hit: a span of source code with its location and embedding.
type Snippet struct {
	Lang         string    `json:"lang"`
	RepoName     string    `json:"repo_name"`
	RepoRef      string    `json:"repo_ref"`
	RelativePath string    `json:"relative_path"`
	Text         string    `json:"text"`
	StartLine    uint64    `json:"start_line"`
	EndLine      uint64    `json:"end_line"`
	StartByte    uint64    `json:"start_byte"`
	EndByte      uint64    `json:"end_byte"`
	Score        float32   `json:"score"`
	Embedding    []float32 `json:"embedding"`
}

// SameLocation reports whether s and o come from the same file of the same repository revision.
func (s *Snippet) SameLocation(o *Snippet) bool {
	return s.RepoName == o.RepoName && s.RepoRef == o.RepoRef && s.RelativePath == o.RelativePath
}

// OverlapsLines reports whether the line ranges of s and o intersect. Location is not compared.
func (s *Snippet) OverlapsLines(o *Snippet) bool {
	return s.StartLine <= o.EndLine && o.StartLine <= s.EndLine
}

// Payload keys under which snippet fields are stored in the vector index.
// Numeric fields are stored as base-10 strings.
const (
	PayloadLang         = "lang"
	PayloadRepoName     = "repo_name"
	PayloadRepoRef      = "repo_ref"
	PayloadRelativePath = "relative_path"
	PayloadSnippet      = "snippet"
	PayloadStartLine    = "start_line"
	PayloadEndLine      = "end_line"
	PayloadStartByte    = "start_byte"
	PayloadEndByte      = "end_byte"
)
