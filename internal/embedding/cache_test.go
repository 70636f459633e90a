package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder counts calls and optionally blocks until release is closed.
type countingEmbedder struct {
	calls      atomic.Int32
	batchCalls atomic.Int32
	release    chan struct{}
	err        error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.release != nil {
		<-e.release
	}
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text))}, nil
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (e *countingEmbedder) Dimensions() int { return 1 }
func (e *countingEmbedder) Close() error    { return nil }

func TestCachedEmbedder_Hit(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := c.Embed(ctx, "abc")
	require.NoError(t, err)
	b, err := c.Embed(ctx, "abc")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Dimensions())
}

func TestCachedEmbedder_Evicts(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, s := range []string{"a", "bb", "ccc"} {
		_, err := c.Embed(ctx, s)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	_, _ = c.Embed(ctx, "a") // evicted, recomputed
	assert.Equal(t, int32(4), inner.calls.Load())
}

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("boom")}
	c, err := NewCachedEmbedder(inner, 4)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "x")
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 0, c.Len())
}

func TestCachedEmbedder_CollapsesConcurrentMisses(t *testing.T) {
	inner := &countingEmbedder{release: make(chan struct{})}
	c, err := NewCachedEmbedder(inner, 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]float32, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Embed(context.Background(), "same")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
	for _, r := range results {
		assert.Equal(t, []float32{4}, r)
	}
}

func TestCachedEmbedder_CallerCancellation(t *testing.T) {
	inner := &countingEmbedder{release: make(chan struct{})}
	c, err := NewCachedEmbedder(inner, 4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Embed(ctx, "slow")
		done <- err
	}()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(inner.release)
	// the shared call still completes and fills the cache
	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestCachedEmbedder_EmbedBatch(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Embed(ctx, "a")
	require.NoError(t, err)

	out, err := c.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, out)
	assert.Equal(t, int32(1), inner.batchCalls.Load())

	_, err = c.EmbedBatch(ctx, []string{"bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), inner.batchCalls.Load(), "all cached, no inner call")
	assert.NoError(t, c.Close())
}
