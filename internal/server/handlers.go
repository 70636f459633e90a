package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/storage"
)

// maxBodyBytes bounds request bodies; ingest batches are the largest.
const maxBodyBytes = 32 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleSemanticGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &models.SemanticRequest{Query: q.Get("query")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, search.KindUser, "invalid limit")
			return
		}
		req.Limit = &limit
	}
	s.search(w, r, req)
}

func (s *Server) handleSemanticPost(w http.ResponseWriter, r *http.Request) {
	var req models.SemanticRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, search.KindUser, "invalid request body")
		return
	}
	s.search(w, r, &req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req *models.SemanticRequest) {
	s.logger.Debug("semantic search request",
		zap.String("query", req.Query),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	response, err := s.engine.Search(r.Context(), req)
	if err != nil {
		s.respondSearchError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type indexRequest struct {
	Snippets []models.SnippetInput `json:"snippets"`
}

func (s *Server) handleIndexSnippets(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		s.respondError(w, http.StatusServiceUnavailable, search.KindConfiguration, search.ErrNotConfigured.Message)
		return
	}
	var req indexRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, search.KindUser, "invalid request body")
		return
	}
	if len(req.Snippets) == 0 {
		s.respondError(w, http.StatusBadRequest, search.KindUser, "snippets is required")
		return
	}
	for i := range req.Snippets {
		if err := req.Snippets[i].Validate(); err != nil {
			s.respondError(w, http.StatusBadRequest, search.KindUser, "snippet "+strconv.Itoa(i)+": "+err.Error())
			return
		}
	}
	n, err := s.indexer.IndexSnippets(r.Context(), req.Snippets)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err), zap.Int("snippets", len(req.Snippets)))
		s.respondError(w, http.StatusInternalServerError, search.KindInternal, search.InternalMessage)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"indexed": n, "status": "indexed"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := DescribeStatus(r.Context(), s.engine, s.config, s.logger)
	if err != nil {
		s.logger.Error("status: count points failed", zap.Error(err))
		s.respondSearchError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

// DescribeStatus reports the engine status together with the configured embedding
// provider and, for the memory index, the size of its database on disk.
func DescribeStatus(ctx context.Context, engine *search.Engine, cfg *config.Config, logger *zap.Logger) (*models.IndexStatus, error) {
	st, err := engine.Status(ctx)
	if err != nil {
		return nil, err
	}
	st.EmbeddingProvider = cfg.Embedding.Provider
	if st.EmbeddingProvider == "" {
		st.EmbeddingProvider = config.EmbeddingProviderHash
	}
	if cfg.Vector.Type == config.VectorTypeMemory {
		if n, err := storage.DatabaseBytes(cfg.Storage.DatabasePath); err == nil {
			st.StorageBytes = n
		} else if logger != nil {
			logger.Warn("status: database size unavailable", zap.Error(err))
		}
	}
	return st, nil
}

// statusForKind maps a search error kind onto an HTTP status.
func statusForKind(k search.Kind) int {
	switch k {
	case search.KindUser:
		return http.StatusBadRequest
	case search.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondSearchError(w http.ResponseWriter, r *http.Request, err error) {
	kind := search.KindOf(err)
	if kind == search.KindInternal {
		var se *search.Error
		if !errors.As(err, &se) {
			// engine failures are logged by the engine itself
			s.logger.Error("request failed", zap.Error(err))
		}
	} else {
		s.logger.Debug("request rejected",
			zap.String("kind", kind.String()),
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	s.respondError(w, statusForKind(kind), kind, search.PublicMessage(err))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, kind search.Kind, message string) {
	s.respondJSON(w, status, errorBody{Error: errorDetail{Kind: kind.String(), Message: strings.TrimSpace(message)}})
}
