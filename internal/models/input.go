package models

import (
	"fmt"
	"strconv"
)

// SnippetInput is one snippet record to be indexed.
type SnippetInput struct {
	Lang         string `json:"lang"`
	RepoName     string `json:"repo_name"`
	RepoRef      string `json:"repo_ref"`
	RelativePath string `json:"relative_path"`
	Text         string `json:"snippet"`
	StartLine    uint64 `json:"start_line"`
	EndLine      uint64 `json:"end_line"`
	StartByte    uint64 `json:"start_byte"`
	EndByte      uint64 `json:"end_byte"`
}

// Validate checks that the location fields are set and the ranges are ordered.
func (s *SnippetInput) Validate() error {
	switch {
	case s.RepoName == "":
		return fmt.Errorf("repo_name is required")
	case s.RepoRef == "":
		return fmt.Errorf("repo_ref is required")
	case s.RelativePath == "":
		return fmt.Errorf("relative_path is required")
	case s.Text == "":
		return fmt.Errorf("snippet is empty")
	case s.EndLine < s.StartLine:
		return fmt.Errorf("end_line %d precedes start_line %d", s.EndLine, s.StartLine)
	case s.EndByte < s.StartByte:
		return fmt.Errorf("end_byte %d precedes start_byte %d", s.EndByte, s.StartByte)
	}
	return nil
}

// Payload returns the string payload stored with the snippet's point.
// Numbers are decimal strings, the form the decoder reads back.
func (s *SnippetInput) Payload() map[string]string {
	return map[string]string{
		PayloadLang:         s.Lang,
		PayloadRepoName:     s.RepoName,
		PayloadRepoRef:      s.RepoRef,
		PayloadRelativePath: s.RelativePath,
		PayloadSnippet:      s.Text,
		PayloadStartLine:    strconv.FormatUint(s.StartLine, 10),
		PayloadEndLine:      strconv.FormatUint(s.EndLine, 10),
		PayloadStartByte:    strconv.FormatUint(s.StartByte, 10),
		PayloadEndByte:      strconv.FormatUint(s.EndByte, 10),
	}
}
