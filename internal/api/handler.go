package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/stylecheck/internal/analyzer"
	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/database"
	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/tracing"
	"github.com/zombar/stylecheck/pkg/logging"
)

// maxTextBytes bounds the size of a submitted document
const maxTextBytes = 4 << 20

// Store is the document storage used by the API
type Store interface {
	CreateDocument(ctx context.Context, doc *models.StoredDocument) error
	GetDocument(ctx context.Context, id string) (*models.StoredDocument, error)
	ListDocuments(ctx context.Context, limit int) ([]*models.StoredDocument, error)
	UpdateDocumentText(ctx context.Context, id, text string) error
	DeleteDocument(ctx context.Context, id string) error
	AddUserWords(ctx context.Context, words ...string) error
}

// Enqueuer schedules background analyses
type Enqueuer interface {
	EnqueueAnalyzeDocument(ctx context.Context, documentID string) (string, error)
	EnqueueReanalyzeEdit(ctx context.Context, documentID string, editPosition int) (string, error)
}

// Handler handles HTTP requests
type Handler struct {
	store    Store
	analyzer *analyzer.Analyzer
	queue    Enqueuer
	defaults config.Settings
	logger   *slog.Logger
	mux      *http.ServeMux
}

// Config holds the dependencies of the API handler
type Config struct {
	Store    Store
	Analyzer *analyzer.Analyzer
	Queue    Enqueuer
	// Defaults are the settings requests are merged over
	Defaults config.Settings
	Logger   *slog.Logger
}

func newHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		store:    cfg.Store,
		analyzer: cfg.Analyzer,
		queue:    cfg.Queue,
		defaults: cfg.Defaults,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	h.setupRoutes()
	return h
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(cfg Config) http.Handler {
	h := newHandler(cfg)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler())
	h.mux.HandleFunc("/health", h.handleHealth)
	h.mux.HandleFunc("/api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("/api/documents", h.handleDocuments)
	h.mux.HandleFunc("/api/documents/", h.handleDocumentOperations)
	h.mux.HandleFunc("/api/suggest", h.handleSuggest)
	h.mux.HandleFunc("/api/thesaurus", h.handleThesaurus)
	h.mux.HandleFunc("/api/dictionary/words", h.handleDictionaryWords)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"status":     "ok",
		"time":       time.Now().Format(time.RFC3339),
		"dictionary": h.analyzer.HasDictionary(),
		"thesaurus":  h.analyzer.HasThesaurus(),
	}, http.StatusOK)
}

type analyzeRequest struct {
	Text     string          `json:"text"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// handleAnalyze analyzes a text synchronously and returns its report
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	settings, err := h.settings(req.Settings)
	if err != nil {
		h.respondAnalysisError(w, r, err)
		return
	}

	tracing.SetSpanAttributes(r.Context(), attribute.Int("text.length", len(req.Text)))

	doc, err := h.analyzer.FullAnalyze(r.Context(), req.Text, settings)
	if err != nil {
		h.respondAnalysisError(w, r, err)
		return
	}
	report, err := h.analyzer.BuildReport(r.Context(), doc, settings)
	if err != nil {
		h.respondAnalysisError(w, r, err)
		return
	}

	respondJSON(w, report, http.StatusOK)
}

// handleDocuments stores a new document and queues its analysis, or lists
// stored documents
func (h *Handler) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createDocument(w, r)
	case http.MethodGet:
		h.listDocuments(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	settings, err := h.settings(req.Settings)
	if err != nil {
		h.respondAnalysisError(w, r, err)
		return
	}

	now := time.Now()
	doc := &models.StoredDocument{
		ID:        uuid.New().String(),
		Text:      req.Text,
		Settings:  settings,
		Status:    models.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx := r.Context()
	if err := h.store.CreateDocument(ctx, doc); err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, "Failed to store document", http.StatusInternalServerError)
		return
	}

	tracing.SetSpanAttributes(ctx,
		attribute.String("document.id", doc.ID),
		attribute.Int("text.length", len(req.Text)))

	taskID, err := h.queue.EnqueueAnalyzeDocument(ctx, doc.ID)
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, fmt.Sprintf("Failed to enqueue analysis: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"document_id": doc.ID,
		"task_id":     taskID,
		"status":      models.StatusQueued,
	}, http.StatusAccepted)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	docs, err := h.store.ListDocuments(r.Context(), limit)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []*models.StoredDocument{}
	}
	respondJSON(w, docs, http.StatusOK)
}

// handleDocumentOperations handles GET, PUT and DELETE for one document
func (h *Handler) handleDocumentOperations(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(r.URL.Path[len("/api/documents/"):], "/")
	if id == "" || strings.Contains(id, "/") {
		respondError(w, "Document ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getDocument(w, r, id)
	case http.MethodPut:
		h.updateDocument(w, r, id)
	case http.MethodDelete:
		h.deleteDocument(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, doc, http.StatusOK)
}

type updateRequest struct {
	Text string `json:"text"`
	// EditPosition is a byte offset into the previous text. Without it the
	// document is analyzed from scratch.
	EditPosition *int `json:"edit_position,omitempty"`
}

func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.EditPosition != nil && *req.EditPosition < 0 {
		respondError(w, "edit_position must not be negative", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.store.UpdateDocumentText(ctx, id, req.Text); err != nil {
		respondStoreError(w, err)
		return
	}

	var (
		taskID string
		err    error
	)
	if req.EditPosition != nil {
		tracing.SetSpanAttributes(ctx, attribute.Int("edit.position", *req.EditPosition))
		taskID, err = h.queue.EnqueueReanalyzeEdit(ctx, id, *req.EditPosition)
	} else {
		taskID, err = h.queue.EnqueueAnalyzeDocument(ctx, id)
	}
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, fmt.Sprintf("Failed to enqueue analysis: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"document_id": id,
		"task_id":     taskID,
		"status":      models.StatusQueued,
	}, http.StatusAccepted)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.DeleteDocument(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSuggest returns spelling suggestions for a word
func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	word := strings.TrimSpace(r.URL.Query().Get("word"))
	if word == "" {
		respondError(w, "Word parameter is required", http.StatusBadRequest)
		return
	}
	n := analyzer.SuggestionLimit
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		if v, err := strconv.Atoi(nStr); err == nil && v > 0 {
			n = v
		}
	}

	suggestions, err := h.analyzer.Suggest(word, n)
	if err != nil {
		h.respondAnalysisError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	respondJSON(w, map[string]interface{}{
		"word":        word,
		"suggestions": suggestions,
	}, http.StatusOK)
}

// handleThesaurus returns the thesaurus entry of a lemma
func (h *Handler) handleThesaurus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	lemma := strings.TrimSpace(r.URL.Query().Get("lemma"))
	if lemma == "" {
		respondError(w, "Lemma parameter is required", http.StatusBadRequest)
		return
	}

	entry, err := h.analyzer.Lookup(r.Context(), lemma)
	if err != nil {
		h.respondAnalysisError(w, r, err)
		return
	}
	respondJSON(w, entry, http.StatusOK)
}

// handleDictionaryWords adds user words to the spelling dictionary. Words are
// persisted so they survive a restart.
func (h *Handler) handleDictionaryWords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Words []string `json:"words"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	words := make([]string, 0, len(req.Words))
	for _, word := range req.Words {
		if word = strings.TrimSpace(word); word != "" {
			words = append(words, word)
		}
	}
	if len(words) == 0 {
		respondError(w, "At least one word is required", http.StatusBadRequest)
		return
	}
	if !h.analyzer.HasDictionary() {
		h.respondAnalysisError(w, r, fmt.Errorf("%w: no dictionary loaded", analyzer.ErrUnavailable))
		return
	}

	if err := h.store.AddUserWords(r.Context(), words...); err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, "Failed to store words", http.StatusInternalServerError)
		return
	}
	if err := h.analyzer.AddWords(words...); err != nil {
		h.respondAnalysisError(w, r, err)
		return
	}

	respondJSON(w, map[string]interface{}{
		"added": len(words),
	}, http.StatusCreated)
}

// settings merges request overrides over the default settings. A request
// that turns on spellcheck while no dictionary is loaded is refused up front.
func (h *Handler) settings(raw json.RawMessage) (config.Settings, error) {
	s := h.defaults
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return s, fmt.Errorf("%w: %v", config.ErrInvalidSettings, err)
		}
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	if s.Features.Spellcheck && !h.analyzer.HasDictionary() {
		return s, fmt.Errorf("%w: spellcheck enabled without a dictionary", analyzer.ErrUnavailable)
	}
	return s, nil
}

// respondAnalysisError maps analysis errors to status codes
func (h *Handler) respondAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, config.ErrInvalidSettings):
		status = http.StatusBadRequest
	case errors.Is(err, analyzer.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		logging.HTTPErrorLogger(h.logger, status, err, r)
	}
	respondError(w, err.Error(), status)
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, "document not found", http.StatusNotFound)
		return
	}
	respondError(w, err.Error(), http.StatusInternalServerError)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxTextBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
