package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/stylecheck/internal/tracing"
)

// Task type constants
const (
	TypeAnalyzeDocument = "stylecheck:analyze_document"
	TypeReanalyzeEdit   = "stylecheck:reanalyze_edit"
)

// Queue names. Edits come from an interactive editor and are served first.
const (
	QueueEdits     = "edits"
	QueueDocuments = "documents"
)

// AnalyzeDocumentPayload represents the payload for a full document analysis
type AnalyzeDocumentPayload struct {
	DocumentID string `json:"document_id"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// ReanalyzeEditPayload represents the payload for re-analysis after an edit.
// EditPosition is a byte offset into the text of the previous analysis.
type ReanalyzeEditPayload struct {
	DocumentID   string `json:"document_id"`
	EditPosition int    `json:"edit_position"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// Client wraps the Asynq client for enqueueing tasks
type Client struct {
	client *asynq.Client
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	return &Client{
		client: asynq.NewClient(redisOpt),
	}
}

// traceFields returns the trace and span ids of ctx and records the enqueue
// event on its span.
func traceFields(ctx context.Context, taskType, documentID string, enqueuedAt int64) (traceID, spanID string) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", ""
	}
	span.AddEvent("task_enqueued", trace.WithAttributes(
		attribute.String("task.type", taskType),
		attribute.String("document.id", documentID),
		attribute.Int64("enqueued_at", enqueuedAt),
	))
	return tracing.TraceIDFromContext(ctx), tracing.SpanIDFromContext(ctx)
}

// newAnalyzeDocumentTask builds a full analysis task and its options
func newAnalyzeDocumentTask(ctx context.Context, documentID string) (*asynq.Task, []asynq.Option, error) {
	payload := AnalyzeDocumentPayload{
		DocumentID: documentID,
		EnqueuedAt: time.Now().UnixNano(),
	}
	payload.TraceID, payload.SpanID = traceFields(ctx, TypeAnalyzeDocument, documentID, payload.EnqueuedAt)

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(5 * time.Minute),
		asynq.Queue(QueueDocuments),
		asynq.Retention(24 * time.Hour),
	}
	return asynq.NewTask(TypeAnalyzeDocument, payloadBytes), opts, nil
}

// newReanalyzeEditTask builds a re-analysis task and its options
func newReanalyzeEditTask(ctx context.Context, documentID string, editPosition int) (*asynq.Task, []asynq.Option, error) {
	payload := ReanalyzeEditPayload{
		DocumentID:   documentID,
		EditPosition: editPosition,
		EnqueuedAt:   time.Now().UnixNano(),
	}
	payload.TraceID, payload.SpanID = traceFields(ctx, TypeReanalyzeEdit, documentID, payload.EnqueuedAt)

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	opts := []asynq.Option{
		asynq.MaxRetry(2),
		asynq.Timeout(time.Minute),
		asynq.Queue(QueueEdits),
		asynq.Retention(time.Hour),
	}
	return asynq.NewTask(TypeReanalyzeEdit, payloadBytes), opts, nil
}

// EnqueueAnalyzeDocument enqueues a full analysis of a stored document
func (c *Client) EnqueueAnalyzeDocument(ctx context.Context, documentID string) (string, error) {
	task, opts, err := newAnalyzeDocumentTask(ctx, documentID)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue analyze document task: %w", err)
	}
	return info.ID, nil
}

// EnqueueReanalyzeEdit enqueues a re-analysis of an edited document
func (c *Client) EnqueueReanalyzeEdit(ctx context.Context, documentID string, editPosition int) (string, error) {
	task, opts, err := newReanalyzeEditTask(ctx, documentID, editPosition)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue reanalyze edit task: %w", err)
	}
	return info.ID, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}
