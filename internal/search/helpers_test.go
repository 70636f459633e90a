package search

import (
	"context"
	"strconv"
	"sync"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
)

// fakeIndex records Search calls and returns fixed candidates.
type fakeIndex struct {
	mu         sync.Mutex
	candidates []*models.RawCandidate
	err        error
	calls      int
	lastCount  int
	lastFilter vector.Filter
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, count int, filter vector.Filter) ([]*models.RawCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastCount = count
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	if count < len(f.candidates) {
		return f.candidates[:count], nil
	}
	return f.candidates, nil
}

func (f *fakeIndex) Upsert(context.Context, []*models.Point) error { return nil }
func (f *fakeIndex) Count(context.Context) (int64, error)          { return int64(len(f.candidates)), nil }
func (f *fakeIndex) Type() string                                   { return "fake" }
func (f *fakeIndex) Close() error                                   { return nil }

// fakeEmbedder returns a fixed vector and records the texts it embedded.
type fakeEmbedder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	texts  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }
func (f *fakeEmbedder) Close() error    { return nil }

// rawCandidate builds a well-formed candidate for path with the given vector.
func rawCandidate(path, ref string, score float32, vec ...float32) *models.RawCandidate {
	return &models.RawCandidate{
		Score:  score,
		Vector: models.DenseVector(vec),
		Payload: map[string]models.PayloadValue{
			models.PayloadLang:         models.StringValue("go"),
			models.PayloadRepoName:     models.StringValue("kensaku"),
			models.PayloadRepoRef:      models.StringValue(ref),
			models.PayloadRelativePath: models.StringValue(path),
			models.PayloadSnippet:      models.StringValue("func " + path + "() {}"),
			models.PayloadStartLine:    models.StringValue("1"),
			models.PayloadEndLine:      models.StringValue("10"),
			models.PayloadStartByte:    models.StringValue("0"),
			models.PayloadEndByte:      models.StringValue(strconv.Itoa(100 + len(path))),
		},
	}
}

// snippet builds a decoded snippet with the given embedding.
func snippet(path string, emb ...float32) *models.Snippet {
	return &models.Snippet{
		Lang:         "go",
		RepoName:     "kensaku",
		RepoRef:      "main",
		RelativePath: path,
		Text:         path,
		StartLine:    1,
		EndLine:      10,
		EndByte:      100,
		Embedding:    emb,
	}
}
