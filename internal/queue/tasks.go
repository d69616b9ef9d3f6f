package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/stylecheck/internal/analyzer"
	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/database"
	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/tracing"
)

// handleAnalyzeDocument runs a full analysis of a stored document
func (w *Worker) handleAnalyzeDocument(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzeDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := w.startTaskSpan(ctx, t.Type(), payload.DocumentID, payload.TraceID, payload.SpanID, payload.EnqueuedAt)
	defer span.End()

	err := w.process(ctx, payload.DocumentID, -1)
	w.finish(span, t.Type(), payload.EnqueuedAt, err)
	return err
}

// handleReanalyzeEdit re-analyzes a document after an edit, reusing the
// previous analysis where the settings allow it
func (w *Worker) handleReanalyzeEdit(ctx context.Context, t *asynq.Task) error {
	var payload ReanalyzeEditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := w.startTaskSpan(ctx, t.Type(), payload.DocumentID, payload.TraceID, payload.SpanID, payload.EnqueuedAt)
	defer span.End()
	span.SetAttributes(attribute.Int("edit.position", payload.EditPosition))

	err := w.process(ctx, payload.DocumentID, payload.EditPosition)
	w.finish(span, t.Type(), payload.EnqueuedAt, err)
	return err
}

// startTaskSpan starts a consumer span, continuing the trace recorded in the
// payload when there is one
func (w *Worker) startTaskSpan(ctx context.Context, taskType, documentID, traceID, spanID string, enqueuedAt int64) (context.Context, trace.Span) {
	if traceID != "" && spanID != "" {
		ctx, _ = tracing.ContextWithRemoteIDs(ctx, traceID, spanID)
	}

	wait := queueWait(enqueuedAt)
	ctx, span := otel.Tracer("stylecheck").Start(ctx, "asynq.task.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("task.type", taskType),
			attribute.String("document.id", documentID),
			attribute.Float64("queue.wait_time_seconds", wait.Seconds()),
		),
	)

	w.logger.Info("processing task",
		"task_type", taskType,
		"document_id", documentID,
		"queue_wait_seconds", wait.Seconds(),
		"trace_id", tracing.TraceIDFromContext(ctx),
	)
	return ctx, span
}

func (w *Worker) finish(span trace.Span, taskType string, enqueuedAt int64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	w.metrics.TaskProcessed(taskType, outcome, queueWait(enqueuedAt))
}

func queueWait(enqueuedAt int64) time.Duration {
	if enqueuedAt <= 0 {
		return 0
	}
	return time.Since(time.Unix(0, enqueuedAt))
}

// process analyzes the current text of a document and stores the result.
// A negative editPosition requests a full analysis.
func (w *Worker) process(ctx context.Context, documentID string, editPosition int) error {
	doc, err := w.store.GetDocument(ctx, documentID)
	if errors.Is(err, database.ErrNotFound) {
		// deleted while queued
		w.logger.Warn("document no longer exists", "document_id", documentID)
		return fmt.Errorf("document %s: %w", documentID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	settings := doc.Settings
	start := time.Now()

	var (
		annotated *models.AnnotatedDocument
		partial   bool
	)
	if editPosition >= 0 && settings.Features.PartialNLP && doc.Annotated != nil {
		annotated, partial, err = w.analyzer.PartialAnalyze(ctx, doc.Text, doc.Annotated, editPosition, settings)
	} else {
		annotated, err = w.analyzer.FullAnalyze(ctx, doc.Text, settings)
	}

	var report *models.Report
	if err == nil {
		report, err = w.analyzer.BuildReport(ctx, annotated, settings)
	}
	if err != nil {
		return w.fail(ctx, documentID, err)
	}
	report.Partial = partial

	if err := w.store.SaveAnalysis(ctx, documentID, annotated, report); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("document %s deleted during analysis: %w", documentID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	w.logger.Info("document analyzed",
		"document_id", documentID,
		"partial", partial,
		"words", annotated.TotalWords,
		"grammar_errors", len(report.GrammarErrors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// fail records an analysis error on the document. Collaborator outages are
// retried; anything else is permanent.
func (w *Worker) fail(ctx context.Context, documentID string, err error) error {
	if uerr := w.store.UpdateStatus(ctx, documentID, models.StatusFailed, err.Error()); uerr != nil {
		w.logger.Error("failed to record analysis failure", "document_id", documentID, "error", uerr)
	}
	if errors.Is(err, config.ErrInvalidSettings) || !isRetriable(err) {
		return fmt.Errorf("analysis failed: %v: %w", err, asynq.SkipRetry)
	}
	return fmt.Errorf("analysis failed: %w", err)
}

// isRetriable reports whether an analysis error may go away on its own
func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, analyzer.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retriablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
		"too many requests",
		"no such host",
		"network is unreachable",
	}
	for _, pattern := range retriablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
