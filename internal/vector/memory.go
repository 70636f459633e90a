package vector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
)

const loadPageSize = 1000

// MemoryIndex is a brute-force cosine index held in memory. When a PointStore is
// attached, upserts are written through to it and Load restores the index from it.
type MemoryIndex struct {
	dimensions int
	store      storage.PointStore
	logger     *zap.Logger

	mu     sync.RWMutex
	points []*models.Point
	byID   map[string]int
}

// NewMemoryIndex creates an empty memory index. store may be nil.
func NewMemoryIndex(dimensions int, store storage.PointStore, logger *zap.Logger) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryIndex{
		dimensions: dimensions,
		store:      store,
		logger:     logger,
		byID:       make(map[string]int),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return TypeMemory
}

// Load replaces the in-memory contents with every point in the store.
// Points whose vector length differs from the index dimensions are skipped.
func (m *MemoryIndex) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	var (
		points  []*models.Point
		skipped int
	)
	for offset := 0; ; offset += loadPageSize {
		page, err := m.store.ListPoints(ctx, offset, loadPageSize)
		if err != nil {
			return fmt.Errorf("load points: %w", err)
		}
		for _, p := range page {
			if len(p.Vector) != m.dimensions {
				skipped++
				continue
			}
			points = append(points, p)
		}
		if len(page) < loadPageSize {
			break
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = m.points[:0]
	m.byID = make(map[string]int, len(points))
	for _, p := range points {
		m.put(p)
	}
	m.logger.Info("Loaded memory index", zap.Int("points", len(m.points)), zap.Int("skipped", skipped))
	return nil
}

// Upsert validates and stores points, replacing any with the same ID.
func (m *MemoryIndex) Upsert(ctx context.Context, points []*models.Point) error {
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point without id")
		}
		if len(p.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", p.ID, len(p.Vector), m.dimensions)
		}
	}
	if m.store != nil {
		if err := m.store.UpsertPoints(ctx, points); err != nil {
			return fmt.Errorf("persist points: %w", err)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.put(clonePoint(p))
	}
	return nil
}

func (m *MemoryIndex) put(p *models.Point) {
	if i, ok := m.byID[p.ID]; ok {
		m.points[i] = p
		return
	}
	m.byID[p.ID] = len(m.points)
	m.points = append(m.points, p)
}

// Search scores every point matching filter by cosine similarity and returns the top count.
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, count int, filter Filter) ([]*models.RawCandidate, error) {
	if len(vector) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), m.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if count <= 0 || len(m.points) == 0 {
		return []*models.RawCandidate{}, nil
	}

	type scored struct {
		point *models.Point
		score float64
	}
	hits := make([]scored, 0, len(m.points))
	for _, p := range m.points {
		if !matches(p.Payload, filter) {
			continue
		}
		hits = append(hits, scored{point: p, score: CosineSimilarity(vector, p.Vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if count > len(hits) {
		count = len(hits)
	}

	out := make([]*models.RawCandidate, count)
	for i := 0; i < count; i++ {
		p := hits[i].point
		payload := make(map[string]models.PayloadValue, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = models.StringValue(v)
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		out[i] = &models.RawCandidate{
			Score:   float32(hits[i].score),
			Vector:  models.DenseVector(vec),
			Payload: payload,
		}
	}
	return out, nil
}

func matches(payload map[string]string, f Filter) bool {
	return matchAny(payload[models.PayloadRepoName], f.Repos, equalFold) &&
		matchAny(payload[models.PayloadLang], f.Langs, equalFold) &&
		matchAny(payload[models.PayloadRepoRef], f.Refs, equal) &&
		matchAny(payload[models.PayloadRelativePath], f.Paths, strings.Contains)
}

func matchAny(value string, wants []string, match func(value, want string) bool) bool {
	if len(wants) == 0 {
		return true
	}
	for _, w := range wants {
		if match(value, w) {
			return true
		}
	}
	return false
}

func equal(a, b string) bool { return a == b }

func equalFold(a, b string) bool { return strings.EqualFold(a, b) }

func clonePoint(p *models.Point) *models.Point {
	vec := make([]float32, len(p.Vector))
	copy(vec, p.Vector)
	payload := make(map[string]string, len(p.Payload))
	for k, v := range p.Payload {
		payload[k] = v
	}
	return &models.Point{ID: p.ID, Vector: vec, Payload: payload}
}

// Count returns the number of points in the index.
func (m *MemoryIndex) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.points)), nil
}

// Close closes the attached store, if any.
func (m *MemoryIndex) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
