package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/zombar/stylecheck/internal/analyzer"
	"github.com/zombar/stylecheck/internal/metrics"
	"github.com/zombar/stylecheck/internal/models"
)

// Store is the document storage used by the worker
type Store interface {
	GetDocument(ctx context.Context, id string) (*models.StoredDocument, error)
	SaveAnalysis(ctx context.Context, id string, annotated *models.AnnotatedDocument, report *models.Report) error
	UpdateStatus(ctx context.Context, id, status, lastError string) error
}

var queuePriorities = map[string]int{
	QueueEdits:     6, // interactive re-analysis after an edit
	QueueDocuments: 3, // full analysis of new documents
}

// Worker wraps the Asynq server for processing tasks
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	store       Store
	analyzer    *analyzer.Analyzer
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// NewWorker creates a new queue worker
func NewWorker(cfg WorkerConfig, store Store, a *analyzer.Analyzer) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	serverCfg := asynq.Config{
		Concurrency: cfg.Concurrency,

		// Queues are processed proportionally to their priority
		Queues:         queuePriorities,
		StrictPriority: false,

		RetryDelayFunc:  retryDelay,
		ShutdownTimeout: 30 * time.Second,

		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)

			logger.Error("task processing error",
				"task_type", task.Type(),
				"error", err,
				"retry_count", retried,
				"max_retries", maxRetry,
			)
		}),
		Logger: newAsynqLogger(logger),
	}

	w := &Worker{
		server:      asynq.NewServer(redisOpt, serverCfg),
		mux:         asynq.NewServeMux(),
		store:       store,
		analyzer:    a,
		concurrency: cfg.Concurrency,
		logger:      logger,
		metrics:     cfg.Metrics,
	}
	w.registerHandlers()

	return w
}

// registerHandlers registers all task handlers with the worker
func (w *Worker) registerHandlers() {
	w.mux.HandleFunc(TypeAnalyzeDocument, w.handleAnalyzeDocument)
	w.mux.HandleFunc(TypeReanalyzeEdit, w.handleReanalyzeEdit)
}

// Start starts the worker to begin processing tasks
func (w *Worker) Start() error {
	w.logger.Info("starting asynq worker",
		"concurrency", w.concurrency,
		"queues", queuePriorities,
	)

	// Run is blocking - starts processing tasks
	if err := w.server.Run(w.mux); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the worker
func (w *Worker) Shutdown() {
	w.logger.Info("shutting down asynq worker")
	w.server.Shutdown()
}

// retryDelay backs off quickly for edits, whose result is stale within
// seconds, and slowly for full analyses waiting on a tagging service.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	delays := []time.Duration{
		10 * time.Second,
		1 * time.Minute,
		5 * time.Minute,
	}
	if task.Type() == TypeReanalyzeEdit {
		delays = []time.Duration{
			1 * time.Second,
			5 * time.Second,
		}
	}
	if n < len(delays) {
		return delays[n]
	}
	return delays[len(delays)-1]
}

// asynqLogger routes asynq's internal logging through slog
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) *asynqLogger {
	return &asynqLogger{logger: logger.With("component", "asynq")}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
