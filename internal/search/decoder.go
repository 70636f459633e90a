package search

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hyperjump/kensaku/internal/models"
)

// Decode failure causes, matched with errors.Is.
var (
	ErrMissingField      = errors.New("missing payload field")
	ErrNotString         = errors.New("payload field is not a string")
	ErrNotNumeric        = errors.New("payload field is not a non-negative integer")
	ErrInvalidRange      = errors.New("range end precedes start")
	ErrMissingVector     = errors.New("candidate has no stored vector")
	ErrNotDense          = errors.New("stored vector is not dense")
	ErrDimensionMismatch = errors.New("stored vector has unexpected dimensions")
)

// DecodeError reports which field of a candidate could not be decoded.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeCandidate converts a raw index candidate into a Snippet. Every payload
// field is required and must be a string; numeric fields hold base-10 integers.
// When dims is positive the stored dense vector must have that length.
func DecodeCandidate(c *models.RawCandidate, dims int) (*models.Snippet, error) {
	if c == nil {
		return nil, &DecodeError{Field: "candidate", Err: ErrMissingField}
	}
	d := payloadDecoder{payload: c.Payload}
	s := &models.Snippet{
		Lang:         d.str(models.PayloadLang),
		RepoName:     d.str(models.PayloadRepoName),
		RepoRef:      d.str(models.PayloadRepoRef),
		RelativePath: d.str(models.PayloadRelativePath),
		Text:         d.str(models.PayloadSnippet),
		StartLine:    d.number(models.PayloadStartLine),
		EndLine:      d.number(models.PayloadEndLine),
		StartByte:    d.number(models.PayloadStartByte),
		EndByte:      d.number(models.PayloadEndByte),
		Score:        c.Score,
	}
	if d.err != nil {
		return nil, d.err
	}
	if s.EndLine < s.StartLine {
		return nil, &DecodeError{Field: models.PayloadEndLine, Err: ErrInvalidRange}
	}
	if s.EndByte < s.StartByte {
		return nil, &DecodeError{Field: models.PayloadEndByte, Err: ErrInvalidRange}
	}

	emb, err := denseVector(c.Vector, dims)
	if err != nil {
		return nil, &DecodeError{Field: "vector", Err: err}
	}
	s.Embedding = emb
	return s, nil
}

// DecodeCandidates decodes every candidate, failing on the first bad one.
func DecodeCandidates(candidates []*models.RawCandidate, dims int) ([]*models.Snippet, error) {
	out := make([]*models.Snippet, 0, len(candidates))
	for i, c := range candidates {
		s, err := DecodeCandidate(c, dims)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// payloadDecoder keeps the first error so field reads can be chained.
type payloadDecoder struct {
	payload map[string]models.PayloadValue
	err     error
}

func (d *payloadDecoder) str(key string) string {
	if d.err != nil {
		return ""
	}
	v, ok := d.payload[key]
	if !ok {
		d.err = &DecodeError{Field: key, Err: ErrMissingField}
		return ""
	}
	if v.Kind != models.ValueString {
		d.err = &DecodeError{Field: key, Err: fmt.Errorf("%w (got %s)", ErrNotString, v.Kind)}
		return ""
	}
	return v.String
}

func (d *payloadDecoder) number(key string) uint64 {
	s := d.str(key)
	if d.err != nil {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		d.err = &DecodeError{Field: key, Err: fmt.Errorf("%w: %q", ErrNotNumeric, s)}
		return 0
	}
	return n
}

func denseVector(v *models.StoredVector, dims int) ([]float32, error) {
	if v == nil {
		return nil, ErrMissingVector
	}
	if v.Kind != models.VectorDense {
		return nil, fmt.Errorf("%w (got %s)", ErrNotDense, v.Kind)
	}
	if len(v.Data) == 0 {
		return nil, ErrMissingVector
	}
	if dims > 0 && len(v.Data) != dims {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(v.Data), dims)
	}
	emb := make([]float32, len(v.Data))
	copy(emb, v.Data)
	return emb, nil
}
