package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zombar/stylecheck/internal/analyzer"
	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/database"
	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/nlp"
	"github.com/zombar/stylecheck/internal/tracing"
)

// mockQueue records enqueued tasks
type mockQueue struct {
	mu      sync.Mutex
	full    []string
	edits   map[string]int
	failing bool
}

func (m *mockQueue) EnqueueAnalyzeDocument(ctx context.Context, documentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", errors.New("redis: connection refused")
	}
	m.full = append(m.full, documentID)
	return "task-full", nil
}

func (m *mockQueue) EnqueueReanalyzeEdit(ctx context.Context, documentID string, editPosition int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", errors.New("redis: connection refused")
	}
	if m.edits == nil {
		m.edits = map[string]int{}
	}
	m.edits[documentID] = editPosition
	return "task-edit", nil
}

type mockDict struct {
	mu    sync.Mutex
	words map[string]bool
}

func newMockDict(words ...string) *mockDict {
	d := &mockDict{words: map[string]bool{}}
	d.Add(words...)
	return d
}

func (d *mockDict) IsCorrect(word string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.words[strings.ToLower(word)]
}

func (d *mockDict) Suggest(word string, n int) []string {
	if strings.ToLower(word) == "chybaa" {
		return []string{"chyba", "chybu"}[:min(n, 2)]
	}
	return nil
}

func (d *mockDict) Add(words ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range words {
		d.words[strings.ToLower(w)] = true
	}
}

type mockThesaurus struct{}

func (mockThesaurus) Lookup(ctx context.Context, lemma string) (*models.ThesaurusEntry, error) {
	return &models.ThesaurusEntry{Heading: lemma, Synonyms: []string{"pekný", "krásny"}}, nil
}

type testEnv struct {
	handler *Handler
	db      *database.DB
	queue   *mockQueue
}

func setupTestHandler(t *testing.T, cfg analyzer.Config) *testEnv {
	t.Helper()

	db, err := database.New(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg.Tokenizer = nlp.NewRuleTokenizer()
	a, err := analyzer.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}

	defaults := config.Default()
	defaults.Features.Spellcheck = cfg.Dictionary != nil

	q := &mockQueue{}
	h := newHandler(Config{
		Store:    db,
		Analyzer: a,
		Queue:    q,
		Defaults: defaults,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &testEnv{handler: h, db: db, queue: q}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.handler.mux.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})

	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%v'", response["status"])
	}
	if response["dictionary"] != false {
		t.Errorf("Expected dictionary false, got %v", response["dictionary"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})

	w := env.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected runtime metrics in /metrics output")
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})

	w := env.do(t, http.MethodPost, "/api/analyze", map[string]string{
		"text": "Toto je  krátky text.\nA druhý odsek.",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var report models.Report
	decode(t, w, &report)
	if report.WordCount != 7 {
		t.Errorf("Expected 7 words, got %d", report.WordCount)
	}
	if report.ParagraphCount != 2 {
		t.Errorf("Expected 2 paragraphs, got %d", report.ParagraphCount)
	}
	if len(report.TextIssues) != 1 || report.TextIssues[0].Kind != models.IssueMultipleSpaces {
		t.Errorf("Expected one multiple_spaces issue, got %+v", report.TextIssues)
	}
	if len(report.GrammarErrors) != 0 {
		t.Errorf("Expected no grammar errors without spellcheck, got %+v", report.GrammarErrors)
	}
}

func TestAnalyzeEndpointEmptyText(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})

	w := env.do(t, http.MethodPost, "/api/analyze", map[string]string{"text": ""})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for empty text, got %d: %s", w.Code, w.Body.String())
	}

	var report models.Report
	decode(t, w, &report)
	if report.WordCount != 0 || report.ReadabilityScore != 0 {
		t.Errorf("Expected an empty report, got %+v", report)
	}
}

func TestAnalyzeEndpointSettings(t *testing.T) {
	tests := []struct {
		name       string
		dict       analyzer.Dictionary
		settings   string
		wantStatus int
	}{
		{"invalid threshold", nil, `{"close_words_min_frequency": 0}`, http.StatusBadRequest},
		{"malformed settings", nil, `{"close_words_min_frequency": "three"}`, http.StatusBadRequest},
		{"spellcheck without dictionary", nil, `{"features": {"spellcheck": true}}`, http.StatusServiceUnavailable},
		{"spellcheck with dictionary", newMockDict("toto", "je"), `{"features": {"spellcheck": true}}`, http.StatusOK},
		{"partial override keeps defaults", nil, `{"long_sentence_words_mid": 2}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestHandler(t, analyzer.Config{Dictionary: tt.dict})
			body := map[string]interface{}{
				"text":     "Toto je chybaa.",
				"settings": json.RawMessage(tt.settings),
			}
			w := env.do(t, http.MethodPost, "/api/analyze", body)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestAnalyzeEndpointSpellcheck(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{Dictionary: newMockDict("toto", "je")})

	w := env.do(t, http.MethodPost, "/api/analyze", map[string]string{"text": "Toto je chybaa."})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var report models.Report
	decode(t, w, &report)
	if len(report.GrammarErrors) != 1 {
		t.Fatalf("Expected 1 grammar error, got %+v", report.GrammarErrors)
	}
	issue := report.GrammarErrors[0]
	if issue.Text != "chybaa" || issue.Kind != models.KindSpelling {
		t.Errorf("Unexpected issue %+v", issue)
	}
	if len(issue.Suggestions) != 2 || issue.Suggestions[0] != "chyba" {
		t.Errorf("Unexpected suggestions %v", issue.Suggestions)
	}
}

func TestAnalyzeEndpointInvalidRequest(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})

	w := env.do(t, http.MethodGet, "/api/analyze", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.handler.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func createDocument(t *testing.T, env *testEnv, text string) string {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/documents", map[string]string{"text": text})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	var response map[string]string
	decode(t, w, &response)
	if response["task_id"] != "task-full" {
		t.Errorf("Expected task_id task-full, got %q", response["task_id"])
	}
	return response["document_id"]
}

func TestCreateDocument(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})

	id := createDocument(t, env, "Prvý odsek.\nDruhý odsek.")
	if id == "" {
		t.Fatal("Expected document_id in response")
	}
	if len(env.queue.full) != 1 || env.queue.full[0] != id {
		t.Errorf("Expected full analysis of %s to be queued, got %v", id, env.queue.full)
	}

	doc, err := env.db.GetDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to load stored document: %v", err)
	}
	if doc.Text != "Prvý odsek.\nDruhý odsek." || doc.Status != models.StatusQueued {
		t.Errorf("Unexpected stored document %+v", doc)
	}
	if doc.Settings.Features.Spellcheck {
		t.Error("Expected handler defaults to be stored with the document")
	}
}

func TestCreateDocumentEnqueueFailure(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})
	env.queue.failing = true

	w := env.do(t, http.MethodPost, "/api/documents", map[string]string{"text": "Text."})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestGetDocumentEndpoint(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})
	id := createDocument(t, env, "Krátky text.")

	w := env.do(t, http.MethodGet, "/api/documents/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var doc models.StoredDocument
	decode(t, w, &doc)
	if doc.ID != id || doc.Text != "Krátky text." {
		t.Errorf("Unexpected document %+v", doc)
	}

	w = env.do(t, http.MethodGet, "/api/documents/does-not-exist", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestUpdateDocumentEndpoint(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})
	id := createDocument(t, env, "Prvý odsek.\nDruhý odsek.")

	w := env.do(t, http.MethodPut, "/api/documents/"+id, map[string]interface{}{
		"text":          "Prvý odsek.\nDruhý dlhší odsek.",
		"edit_position": 18,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	if pos, ok := env.queue.edits[id]; !ok || pos != 18 {
		t.Errorf("Expected edit re-analysis at 18, got %v", env.queue.edits)
	}

	doc, err := env.db.GetDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to load document: %v", err)
	}
	if doc.Text != "Prvý odsek.\nDruhý dlhší odsek." {
		t.Errorf("Expected updated text, got %q", doc.Text)
	}

	// without an edit position the whole document is queued again
	w = env.do(t, http.MethodPut, "/api/documents/"+id, map[string]string{"text": "Nový text."})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}
	if len(env.queue.full) != 2 {
		t.Errorf("Expected a second full analysis, got %v", env.queue.full)
	}

	w = env.do(t, http.MethodPut, "/api/documents/"+id, map[string]interface{}{"text": "x", "edit_position": -1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for negative position, got %d", w.Code)
	}

	w = env.do(t, http.MethodPut, "/api/documents/missing", map[string]string{"text": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteDocumentEndpoint(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})
	id := createDocument(t, env, "Text na zmazanie.")

	w := env.do(t, http.MethodDelete, "/api/documents/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/api/documents/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on second delete, got %d", w.Code)
	}
}

func TestListDocumentsEndpoint(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})

	w := env.do(t, http.MethodGet, "/api/documents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected empty list, got %s", w.Body.String())
	}

	for _, text := range []string{"Prvý.", "Druhý.", "Tretí."} {
		createDocument(t, env, text)
	}

	w = env.do(t, http.MethodGet, "/api/documents?limit=2", nil)
	var docs []models.StoredDocument
	decode(t, w, &docs)
	if len(docs) != 2 {
		t.Errorf("Expected 2 documents, got %d", len(docs))
	}
}

func TestSuggestEndpoint(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{Dictionary: newMockDict("chyba")})

	w := env.do(t, http.MethodGet, "/api/suggest?word=chybaa&n=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var response struct {
		Word        string   `json:"word"`
		Suggestions []string `json:"suggestions"`
	}
	decode(t, w, &response)
	if response.Word != "chybaa" || len(response.Suggestions) != 1 || response.Suggestions[0] != "chyba" {
		t.Errorf("Unexpected response %+v", response)
	}

	w = env.do(t, http.MethodGet, "/api/suggest", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without word, got %d", w.Code)
	}
}

func TestSuggestEndpointWithoutDictionary(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})

	w := env.do(t, http.MethodGet, "/api/suggest?word=slovo", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestThesaurusEndpoint(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})
	w := env.do(t, http.MethodGet, "/api/thesaurus?lemma=pekn%C3%BD", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 without thesaurus, got %d", w.Code)
	}

	env = setupTestHandler(t, analyzer.Config{Thesaurus: mockThesaurus{}})
	w = env.do(t, http.MethodGet, "/api/thesaurus?lemma=pekn%C3%BD", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var entry models.ThesaurusEntry
	decode(t, w, &entry)
	if entry.Heading != "pekný" || len(entry.Synonyms) != 2 {
		t.Errorf("Unexpected entry %+v", entry)
	}

	w = env.do(t, http.MethodGet, "/api/thesaurus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without lemma, got %d", w.Code)
	}
}

func TestDictionaryWordsEndpoint(t *testing.T) {
	dict := newMockDict()
	env := setupTestHandler(t, analyzer.Config{Dictionary: dict})

	w := env.do(t, http.MethodPost, "/api/dictionary/words", map[string][]string{
		"words": {"Stylecheck", "  ", "furtík"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if !dict.IsCorrect("stylecheck") || !dict.IsCorrect("furtík") {
		t.Error("Expected words to be added to the live dictionary")
	}

	words, err := env.db.UserWords(context.Background())
	if err != nil {
		t.Fatalf("Failed to load user words: %v", err)
	}
	if len(words) != 2 {
		t.Errorf("Expected 2 persisted words, got %v", words)
	}

	w = env.do(t, http.MethodPost, "/api/dictionary/words", map[string][]string{"words": {" "}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for blank words, got %d", w.Code)
	}
}

func TestDictionaryWordsWithoutDictionary(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})

	w := env.do(t, http.MethodPost, "/api/dictionary/words", map[string][]string{"words": {"slovo"}})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}
	words, _ := env.db.UserWords(context.Background())
	if len(words) != 0 {
		t.Errorf("Expected nothing persisted, got %v", words)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestHandler(t, analyzer.Config{})
	handler := NewHandler(Config{Store: env.db, Analyzer: env.handler.analyzer, Queue: env.queue, Defaults: config.Default()})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://editor.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Errorf("Expected CORS headers, got %v", w.Header())
	}
}

func TestAnalyzeTracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp, err := tracing.InitTracer("stylecheck-test", rec)
	if err != nil {
		t.Fatalf("Failed to init tracer: %v", err)
	}
	defer tp.Shutdown(context.Background())

	env := setupTestHandler(t, analyzer.Config{})
	handler := tracing.HTTPMiddleware("stylecheck-test")(env.handler.mux)

	body := strings.NewReader(`{"text":"Krátky text na sledovanie."}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	spans := rec.Ended()
	var serverTrace, analyzeTrace string
	for _, span := range spans {
		switch span.Name() {
		case "POST /api/analyze":
			serverTrace = span.SpanContext().TraceID().String()
			hasLength := false
			for _, attr := range span.Attributes() {
				if string(attr.Key) == "text.length" {
					hasLength = true
				}
			}
			if !hasLength {
				t.Error("text.length attribute not found on request span")
			}
		case "analyzer.FullAnalyze":
			analyzeTrace = span.SpanContext().TraceID().String()
		}
	}

	if serverTrace == "" || analyzeTrace == "" {
		t.Fatalf("Expected request and analysis spans, got %v", getSpanNames(spans))
	}
	if serverTrace != analyzeTrace {
		t.Errorf("Expected analysis span in the request trace")
	}
	if w.Header().Get(tracing.TraceIDHeader) != serverTrace {
		t.Errorf("Expected trace id header %s, got %s", serverTrace, w.Header().Get(tracing.TraceIDHeader))
	}
}

// getSpanNames returns a list of span names for debugging
func getSpanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, len(spans))
	for i, span := range spans {
		names[i] = span.Name()
	}
	return names
}
