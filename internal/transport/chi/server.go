package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/osamaatef1/rag-service/internal/domain"
	healthuc "github.com/osamaatef1/rag-service/internal/usecase/health"
	ingestuc "github.com/osamaatef1/rag-service/internal/usecase/ingest"
	queryuc "github.com/osamaatef1/rag-service/internal/usecase/query"
)

const maxUploadBytes = 32 << 20 // 32 MiB

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the ingestion and retrieval API over chi.
type Server struct {
	ingest        *ingestuc.Service
	query         *queryuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	query *queryuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest: ingest,
		query:  query,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbedding, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, codeGenerationProviderError),
		sentinelHandler(domain.ErrStorage, http.StatusServiceUnavailable, codeStorageUnavailable),
	}
	return s
}

// Routes mounts all API handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.ingestText)
			r.Post("/file", s.ingestFile)
			r.Post("/url", s.ingestURL)
			r.Get("/", s.listDocuments)
			r.Get("/stats", s.documentStats)
			r.Get("/{id}", s.getDocument)
			r.Delete("/{id}", s.deleteDocument)
		})
		r.Post("/query", s.handleQuery)
	})
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", s.metricsHandler)
}

type ingestTextRequest struct {
	Content    string          `json:"content"`
	Collection string          `json:"collection,omitempty"`
	Metadata   domain.Metadata `json:"metadata,omitempty"`
}

type ingestURLRequest struct {
	URL        string          `json:"url"`
	Collection string          `json:"collection,omitempty"`
	Metadata   domain.Metadata `json:"metadata,omitempty"`
}

type documentResponse struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	SourceType string          `json:"source_type"`
	Metadata   domain.Metadata `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ChunkCount int             `json:"chunk_count"`
}

type documentListResponse struct {
	Items  []documentResponse `json:"items"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

type deleteResponse struct {
	ID            string `json:"id"`
	ChunksRemoved int    `json:"chunks_removed"`
}

type queryRequest struct {
	Query          string          `json:"query"`
	Collection     string          `json:"collection,omitempty"`
	TopK           int             `json:"top_k,omitempty"`
	MetadataFilter domain.Metadata `json:"metadata_filter,omitempty"`
	IncludeSources *bool           `json:"include_sources,omitempty"`
}

// ingestText handles POST /api/v1/documents.
func (s *Server) ingestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	doc, err := s.ingest.IngestText(r.Context(), req.Content, req.Collection, req.Metadata)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, documentToResponse(doc))
}

// ingestFile handles POST /api/v1/documents/file (multipart form: file,
// collection, metadata as a JSON object string).
func (s *Server) ingestFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read file: "+err.Error())
		return
	}

	meta, err := metadataFromForm(r.FormValue("metadata"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	doc, err := s.ingest.IngestFile(r.Context(), header.Filename, data, r.FormValue("collection"), meta)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, documentToResponse(doc))
}

// ingestURL handles POST /api/v1/documents/url.
func (s *Server) ingestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "url is required")
		return
	}

	doc, err := s.ingest.IngestURL(r.Context(), req.URL, req.Collection, req.Metadata)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, documentToResponse(doc))
}

// listDocuments handles GET /api/v1/documents.
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	docs, total, err := s.ingest.List(r.Context(), r.URL.Query().Get("collection"), limit, offset)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}

	writeJSON(w, http.StatusOK, documentListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// documentStats handles GET /api/v1/documents/stats.
func (s *Server) documentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ingest.Stats(r.Context(), r.URL.Query().Get("collection"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// getDocument handles GET /api/v1/documents/{id}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ingest.Get(r.Context(), r.URL.Query().Get("collection"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// deleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.ingest.Delete(r.Context(), r.URL.Query().Get("collection"), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{ID: id, ChunksRemoved: removed})
}

// handleQuery handles POST /api/v1/query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	includeSources := true
	if req.IncludeSources != nil {
		includeSources = *req.IncludeSources
	}

	resp, err := s.query.Query(r.Context(), domain.QueryRequest{
		Query:          req.Query,
		Collection:     req.Collection,
		TopK:           req.TopK,
		MetadataFilter: req.MetadataFilter,
		IncludeSources: includeSources,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// metricsHandler handles GET /metrics.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func documentToResponse(doc domain.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID,
		Collection: doc.Collection,
		SourceType: string(doc.SourceType),
		Metadata:   doc.Metadata,
		CreatedAt:  doc.CreatedAt,
		ChunkCount: doc.ChunkCount,
	}
}

func metadataFromForm(raw string) (domain.Metadata, error) {
	if raw == "" {
		return nil, nil
	}
	var meta domain.Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("metadata must be a JSON object of strings: %w", err)
	}
	return meta, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// Wire error codes.
type errorCode string

const (
	codeBadRequest              errorCode = "bad_request"
	codeValidationFailed        errorCode = "validation_failed"
	codeDocumentNotFound        errorCode = "document_not_found"
	codeRateLimited             errorCode = "rate_limited"
	codeEmbeddingProviderError  errorCode = "embedding_provider_error"
	codeGenerationProviderError errorCode = "generation_provider_error"
	codeStorageUnavailable      errorCode = "storage_unavailable"
	codeInternalError           errorCode = "internal_error"
	codeUnauthorized            errorCode = "unauthorized"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the full error chain for expected sentinels and
// a generic message otherwise, never exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbedding,
		domain.ErrGeneration,
		domain.ErrStorage,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
