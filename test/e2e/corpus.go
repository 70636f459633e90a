// Package e2e provides end-to-end tests over a synthetic code corpus and multiple queries.
package e2e

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hyperjump/kensaku/internal/models"
)

// CorpusSnippet is one source snippet in the E2E corpus.
type CorpusSnippet struct {
	Repo   string
	Ref    string
	Lang   string
	Path   string
	Phrase string
	Text   string
}

// QueryTestCase defines a query and the paths of which at least one must appear in the results.
type QueryTestCase struct {
	Query         string
	ExpectedPaths []string
	Description   string
}

// Corpus holds snippets and query test cases for E2E tests.
type Corpus struct {
	Snippets     []CorpusSnippet
	TestCases    []QueryTestCase
	TotalQueries int
	// DuplicatedPaths are indexed twice, on "main" and on DuplicateRef, with identical text.
	DuplicatedPaths []string
}

// DuplicateRef is the ref carrying copies of the first snippets.
const DuplicateRef = "release"

// duplicates is how many snippets are copied onto DuplicateRef.
const duplicates = 5

var topics = []string{
	"kubernetes container orchestration",
	"postgres relational database",
	"docker container images",
	"machine learning algorithms",
	"neural network training",
	"rest api endpoints",
	"graphql query resolver",
	"redis cache eviction",
	"elasticsearch full text index",
	"lambda serverless handler",
	"terraform infrastructure plan",
	"prometheus metrics exporter",
	"grpc remote procedure",
	"oauth authorization token",
	"jwt signature verify",
	"git version control",
	"kafka stream consumer",
	"nginx reverse proxy",
	"rate limiting throttle",
	"circuit breaker resilience",
	"feature flag rollout",
	"structured logging fields",
	"distributed tracing spans",
	"password hashing bcrypt",
	"backup snapshot restore",
	"websocket realtime broadcast",
	"message queue publisher",
	"cosine similarity vectors",
	"embedding model inference",
	"chunking overlap windows",
	"deadlock detection mutex",
	"retry exponential backoff",
	"csv parser quoted fields",
	"json decoder streaming",
	"yaml config loader",
	"semaphore worker pool",
}

var repos = []struct {
	name string
	lang string
}{
	{"platform", "go"},
	{"webapp", "python"},
	{"infra", "go"},
}

// BuildCorpus returns a corpus with one snippet per topic spread over three
// repositories, copies of the first snippets on DuplicateRef, and one query per topic.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	for i, phrase := range topics {
		repo := repos[i%len(repos)]
		s := CorpusSnippet{
			Repo:   repo.name,
			Ref:    "main",
			Lang:   repo.lang,
			Phrase: phrase,
		}
		words := strings.Fields(phrase)
		if repo.lang == "python" {
			s.Path = fmt.Sprintf("app/%s.py", strings.Join(words, "_"))
			s.Text = fmt.Sprintf("def %s(request):\n    \"\"\"Handles %s.\"\"\"\n    return %s_impl(request)\n",
				strings.Join(words, "_"), phrase, strings.Join(words, "_"))
		} else {
			name := camel(words)
			s.Path = fmt.Sprintf("pkg/%s/%s.go", words[0], strings.Join(words, "_"))
			s.Text = fmt.Sprintf("// %s handles %s.\nfunc %s(ctx context.Context) error {\n\treturn %sImpl(ctx)\n}\n",
				name, phrase, name, name)
		}
		c.Snippets = append(c.Snippets, s)
		c.TestCases = append(c.TestCases, QueryTestCase{
			Query:         phrase,
			ExpectedPaths: []string{s.Path},
			Description:   fmt.Sprintf("topic %q in %s", phrase, repo.name),
		})
	}
	for i := 0; i < duplicates && i < len(topics); i++ {
		dup := c.Snippets[i]
		dup.Ref = DuplicateRef
		c.Snippets = append(c.Snippets, dup)
		c.DuplicatedPaths = append(c.DuplicatedPaths, dup.Path)
	}
	c.TotalQueries = len(c.TestCases)
	return c
}

func camel(words []string) string {
	var b strings.Builder
	for _, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// ToSnippetInputs converts the corpus into ingest records.
func (c *Corpus) ToSnippetInputs() []models.SnippetInput {
	inputs := make([]models.SnippetInput, len(c.Snippets))
	for i, s := range c.Snippets {
		inputs[i] = models.SnippetInput{
			Lang:         s.Lang,
			RepoName:     s.Repo,
			RepoRef:      s.Ref,
			RelativePath: s.Path,
			Text:         s.Text,
			StartLine:    1,
			EndLine:      uint64(strings.Count(s.Text, "\n")),
			StartByte:    0,
			EndByte:      uint64(len(s.Text)),
		}
	}
	return inputs
}
