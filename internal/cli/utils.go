// Package cli provides output formatting for the kensaku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one location per line, grep style.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// Bounds on the code shown per result in text output.
const (
	maxSnippetLines = 12
	maxLineWidth    = 160
)

// ParseOutputFormat validates a -output flag value. Empty means text.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return OutputText, nil
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, compact or json)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SemanticResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, s := range response.Snippets {
			fmt.Fprintf(w, "%s:%d-%d\t%.4f\n", Location(s), s.StartLine, s.EndLine, s.Score)
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SemanticResponse) {
	fmt.Fprintf(w, "\nFound %d snippets in %dms\n\n", len(response.Snippets), response.QueryTime)
	for i, s := range response.Snippets {
		writeOneResult(w, i+1, s)
	}
}

func writeOneResult(w io.Writer, rank int, s *models.Snippet) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "[%d] %s | Score: %.4f\n", rank, Location(s), s.Score)
	lang := s.Lang
	if lang == "" {
		lang = "unknown"
	}
	fmt.Fprintf(w, "Lines %d-%d (%s)\n", s.StartLine, s.EndLine, lang)
	fmt.Fprintf(w, "\n%s\n", TruncateLines(s.Text, maxSnippetLines))
	fmt.Fprintln(w)
}

// Location formats a snippet's repository location as repo@ref:path.
func Location(s *models.Snippet) string {
	return fmt.Sprintf("%s@%s:%s", s.RepoName, s.RepoRef, s.RelativePath)
}

// WriteStatus writes the index status to w.
func WriteStatus(w io.Writer, st *models.IndexStatus, format SearchOutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	if !st.Configured {
		fmt.Fprintln(w, "Vector index: not configured")
		return nil
	}
	fmt.Fprintf(w, "Vector index:     %s\n", st.IndexType)
	fmt.Fprintf(w, "Points:           %d\n", st.Points)
	fmt.Fprintf(w, "Dimensions:       %d\n", st.Dimensions)
	if st.EmbeddingProvider != "" {
		fmt.Fprintf(w, "Embeddings:       %s\n", st.EmbeddingProvider)
	}
	fmt.Fprintf(w, "Over-fetch:       x%d\n", st.OverfetchMultiplier)
	fmt.Fprintf(w, "Dedup threshold:  %.2f\n", st.DedupThreshold)
	if st.StorageBytes > 0 {
		fmt.Fprintf(w, "Storage:          %s\n", FormatBytes(st.StorageBytes))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TruncateLines returns up to maxLines lines of s, each cut at maxLineWidth
// runes, with a marker line if lines were dropped.
func TruncateLines(s string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = utils.Truncate(l, maxLineWidth)
	}
	if maxLines <= 0 || len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:maxLines], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-maxLines)
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
