package indexer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
)

// maxFileSize skips generated or vendored blobs.
const maxFileSize = 1 << 20

var languageByExt = map[string]string{
	"go":    "go",
	"rs":    "rust",
	"py":    "python",
	"js":    "javascript",
	"jsx":   "javascript",
	"ts":    "typescript",
	"tsx":   "typescript",
	"java":  "java",
	"kt":    "kotlin",
	"c":     "c",
	"h":     "c",
	"cc":    "cpp",
	"cpp":   "cpp",
	"hpp":   "cpp",
	"cs":    "csharp",
	"rb":    "ruby",
	"php":   "php",
	"swift": "swift",
	"scala": "scala",
	"sh":    "shell",
	"sql":   "sql",
	"md":    "markdown",
	"yaml":  "yaml",
	"yml":   "yaml",
	"json":  "json",
	"toml":  "toml",
}

// DetectLanguage returns the language name for a file path, or "" when unknown.
func DetectLanguage(path string) string {
	return languageByExt[strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))]
}

// Source identifies the repository revision being collected.
type Source struct {
	RepoName string
	RepoRef  string
	// Extensions limits collection to these extensions; empty means every file
	// with a known language.
	Extensions []string
}

// CollectDirectory walks dir and chunks every matching text file into snippet
// inputs with paths relative to dir. Hidden directories are skipped.
func CollectDirectory(ctx context.Context, dir string, src Source, chunker *Chunker) ([]models.SnippetInput, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	if src.RepoName == "" {
		src.RepoName = filepath.Base(absDir)
	}

	var inputs []models.SnippetInput
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !src.Matches(path) {
			return nil
		}
		snippets, err := collectFile(absDir, path, src, chunker)
		if err != nil {
			return err
		}
		inputs = append(inputs, snippets...)
		return nil
	})
	return inputs, err
}

// Matches reports whether path is a file src collects.
func (s Source) Matches(path string) bool {
	if len(s.Extensions) > 0 {
		return extensionAllowed(filepath.Ext(path), s.Extensions)
	}
	return DetectLanguage(path) != ""
}

// CollectFile chunks a single file under root. Hidden, oversized, binary or
// non-matching files yield no snippets. src.RepoName defaults to root's base name.
func CollectFile(root, path string, src Source, chunker *Chunker) ([]models.SnippetInput, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%s is not under %s", path, root)
	}
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != "." {
			return nil, nil
		}
	}
	if src.RepoName == "" {
		src.RepoName = filepath.Base(absRoot)
	}
	if !src.Matches(absPath) {
		return nil, nil
	}
	return collectFile(absRoot, absPath, src, chunker)
}

func collectFile(absRoot, path string, src Source, chunker *Chunker) ([]models.SnippetInput, error) {
	// Resolve symlinks so we only read regular files
	finfo, statErr := os.Stat(path)
	if statErr != nil || !finfo.Mode().IsRegular() || finfo.Size() > maxFileSize {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return nil, nil
	}
	rel, err := filepath.Rel(absRoot, path)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)
	var inputs []models.SnippetInput
	for _, ch := range chunker.Chunk(string(content)) {
		inputs = append(inputs, models.SnippetInput{
			Lang:         DetectLanguage(path),
			RepoName:     src.RepoName,
			RepoRef:      src.RepoRef,
			RelativePath: rel,
			Text:         ch.Text,
			StartLine:    ch.StartLine,
			EndLine:      ch.EndLine,
			StartByte:    ch.StartByte,
			EndByte:      ch.EndByte,
		})
	}
	return inputs, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
