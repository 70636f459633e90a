package models

// IndexStatus describes the configured search backend.
type IndexStatus struct {
	Configured          bool    `json:"configured"`
	IndexType           string  `json:"index_type,omitempty"`
	Points              int64   `json:"points"`
	Dimensions          int     `json:"dimensions"`
	EmbeddingProvider   string  `json:"embedding_provider,omitempty"`
	OverfetchMultiplier int     `json:"overfetch_multiplier"`
	DedupThreshold      float64 `json:"dedup_threshold"`
	StorageBytes        int64   `json:"storage_bytes,omitempty"`
}
