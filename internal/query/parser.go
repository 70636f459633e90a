// Package query parses natural-language code search queries into filters and free text.
package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidQuery is returned when the query text cannot be parsed.
var ErrInvalidQuery = errors.New("invalid query")

// Filter keys recognised in a query, e.g. "repo:kensaku lang:go parse json".
const (
	KeyRepo   = "repo"
	KeyLang   = "lang"
	KeyPath   = "path"
	KeyBranch = "branch"
)

// ParsedQuery is the structured form of a natural-language query.
type ParsedQuery struct {
	// Original is the raw query text.
	Original string
	Repos    []string
	Langs    []string
	Paths    []string
	Branches []string
	// Terms are the free-text words and phrases in order of appearance. Phrases keep their inner spacing.
	Terms []string
}

// Target returns the text to embed: the free-text part of the query.
// The second result is false when the query has no free text (only filters, or nothing at all).
func (q *ParsedQuery) Target() (string, bool) {
	if q == nil || len(q.Terms) == 0 {
		return "", false
	}
	target := strings.Join(q.Terms, " ")
	if strings.TrimSpace(target) == "" {
		return "", false
	}
	return target, true
}

// HasFilters reports whether any filter term was given.
func (q *ParsedQuery) HasFilters() bool {
	return len(q.Repos)+len(q.Langs)+len(q.Paths)+len(q.Branches) > 0
}

// Parse splits raw into filter terms and free text. Double quotes group a phrase, which is kept
// as free text even when it contains a colon. Fails on an unterminated quote or an empty filter value.
func Parse(raw string) (*ParsedQuery, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return nil, err
	}
	q := &ParsedQuery{Original: raw}
	for _, tok := range tokens {
		if tok.quoted {
			q.Terms = append(q.Terms, tok.text)
			continue
		}
		key, value, isFilter := splitFilter(tok.text)
		if !isFilter {
			q.Terms = append(q.Terms, tok.text)
			continue
		}
		if value == "" {
			return nil, fmt.Errorf("%w: empty value for %q", ErrInvalidQuery, key+":")
		}
		switch key {
		case KeyRepo:
			q.Repos = append(q.Repos, value)
		case KeyLang:
			q.Langs = append(q.Langs, strings.ToLower(value))
		case KeyPath:
			q.Paths = append(q.Paths, value)
		case KeyBranch:
			q.Branches = append(q.Branches, value)
		}
	}
	return q, nil
}

type token struct {
	text   string
	quoted bool
}

func tokenize(raw string) ([]token, error) {
	var (
		tokens  []token
		current strings.Builder
		inQuote bool
	)
	flush := func(quoted bool) {
		text := current.String()
		current.Reset()
		if quoted {
			text = strings.TrimSpace(text)
		}
		if text != "" {
			tokens = append(tokens, token{text: text, quoted: quoted})
		}
	}
	for _, r := range raw {
		switch {
		case r == '"':
			flush(inQuote)
			inQuote = !inQuote
		case unicode.IsSpace(r) && !inQuote:
			flush(false)
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote", ErrInvalidQuery)
	}
	flush(false)
	return tokens, nil
}

// splitFilter recognises "key:value" where key is a known filter name (case-insensitive).
func splitFilter(word string) (key, value string, ok bool) {
	idx := strings.IndexByte(word, ':')
	if idx <= 0 {
		return "", "", false
	}
	key = strings.ToLower(word[:idx])
	switch key {
	case KeyRepo, KeyLang, KeyPath, KeyBranch:
		return key, word[idx+1:], true
	}
	return "", "", false
}
