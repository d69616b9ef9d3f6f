package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/zombar/stylecheck/internal/analyzer"
	"github.com/zombar/stylecheck/internal/api"
	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/database"
	"github.com/zombar/stylecheck/internal/dictionary"
	"github.com/zombar/stylecheck/internal/metrics"
	"github.com/zombar/stylecheck/internal/nlp"
	"github.com/zombar/stylecheck/internal/ollama"
	"github.com/zombar/stylecheck/internal/queue"
	"github.com/zombar/stylecheck/internal/tracing"
	"github.com/zombar/stylecheck/pkg/logging"
)

const serviceName = "stylecheck"

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("stylecheck service initializing", "version", "1.0.0")

	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
	}

	// Get default values from environment variables, with fallbacks
	var (
		port              = flag.String("port", getEnv("PORT", "8080"), "Server port (env: PORT)")
		dbDriver          = flag.String("db-driver", getEnv("DB_DRIVER", database.DriverSQLite), "Database driver: sqlite or postgres (env: DB_DRIVER)")
		dbDSN             = flag.String("db", getEnv("DB_DSN", "stylecheck.db"), "Database DSN or file path (env: DB_DSN)")
		redisAddr         = flag.String("redis", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address for the task queue (env: REDIS_ADDR)")
		workerConcurrency = flag.Int("worker-concurrency", getEnvInt("WORKER_CONCURRENCY", 4), "Concurrent analysis tasks (env: WORKER_CONCURRENCY)")
		udpipeURL         = flag.String("udpipe-url", getEnv("UDPIPE_URL", ""), "UDPipe REST API URL; empty uses the rule-based tokenizer (env: UDPIPE_URL)")
		udpipeModel       = flag.String("udpipe-model", getEnv("UDPIPE_MODEL", "slovak"), "UDPipe model (env: UDPIPE_MODEL)")
		ollamaURL         = flag.String("ollama-url", getEnv("OLLAMA_URL", "http://localhost:11434"), "Ollama API URL (env: OLLAMA_URL)")
		ollamaModel       = flag.String("ollama-model", getEnv("OLLAMA_MODEL", "gpt-oss:20b"), "Ollama model to use (env: OLLAMA_MODEL)")
		useOllama         = flag.Bool("use-ollama", getEnvBool("USE_OLLAMA", true), "Enable the Ollama thesaurus (env: USE_OLLAMA)")
		dictionaryPath    = flag.String("dictionary", getEnv("DICTIONARY_PATH", ""), "Spelling word list or hunspell .dic file (env: DICTIONARY_PATH)")
		settingsPath      = flag.String("settings", getEnv("SETTINGS_PATH", ""), "Analysis settings YAML file (env: SETTINGS_PATH)")
	)
	flag.Parse()

	settings, err := config.Load(*settingsPath)
	if err != nil {
		logger.Error("failed to load analysis settings", "error", err, "settings_path", *settingsPath)
		os.Exit(1)
	}

	db, err := database.New(*dbDriver, *dbDSN)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "driver", *dbDriver)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	m := metrics.New(serviceName, nil)
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			m.UpdateDBStats(db.Conn())
		}
	}()

	cfg := analyzer.Config{
		Tokenizer: newTokenizer(logger, *udpipeURL, *udpipeModel),
		Logger:    logger,
		Metrics:   m,
	}

	if *dictionaryPath != "" {
		speller, err := loadDictionary(db, *dictionaryPath)
		if err != nil {
			logger.Error("failed to load dictionary", "error", err, "dictionary_path", *dictionaryPath)
			os.Exit(1)
		}
		cfg.Dictionary = speller
	} else if settings.Features.Spellcheck {
		logger.Warn("no dictionary configured, spellcheck disabled")
		settings.Features.Spellcheck = false
	}

	if *useOllama {
		client, err := ollama.New(*ollamaURL, *ollamaModel)
		if err != nil {
			logger.Warn("failed to initialize Ollama client, thesaurus disabled",
				"error", err,
				"ollama_url", *ollamaURL,
			)
		} else {
			logger.Info("Ollama thesaurus enabled", "model", *ollamaModel, "url", *ollamaURL)
			cfg.Thesaurus = client
		}
	}

	a, err := analyzer.New(cfg)
	if err != nil {
		logger.Error("failed to create analyzer", "error", err)
		os.Exit(1)
	}

	queueClient := queue.NewClient(queue.ClientConfig{RedisAddr: *redisAddr})
	defer queueClient.Close()

	worker := queue.NewWorker(queue.WorkerConfig{
		RedisAddr:   *redisAddr,
		Concurrency: *workerConcurrency,
		Logger:      logger,
		Metrics:     m,
	}, db, a)
	go func() {
		if err := worker.Start(); err != nil {
			logger.Error("worker stopped", "error", err)
			os.Exit(1)
		}
	}()

	apiHandler := api.NewHandler(api.Config{
		Store:    db,
		Analyzer: a,
		Queue:    queueClient,
		Defaults: settings,
		Logger:   logger,
	})

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware(serviceName)(apiHandler),
	)

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // thesaurus lookups wait on the LLM
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("stylecheck service starting",
			"port", *port,
			"db_driver", *dbDriver,
			"redis", *redisAddr,
			"udpipe", *udpipeURL != "",
			"spellcheck", cfg.Dictionary != nil,
			"thesaurus", cfg.Thesaurus != nil,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	worker.Shutdown()

	logger.Info("server stopped")
}

// newTokenizer returns the UDPipe tokenizer when a URL is configured and the
// rule-based tokenizer otherwise
func newTokenizer(logger *slog.Logger, udpipeURL, model string) nlp.Tokenizer {
	if udpipeURL == "" {
		logger.Info("UDPipe not configured, using rule-based tokenizer")
		return nlp.NewRuleTokenizer()
	}
	u, err := nlp.NewUDPipe(udpipeURL, model)
	if err != nil {
		logger.Warn("failed to initialize UDPipe, using rule-based tokenizer", "error", err, "udpipe_url", udpipeURL)
		return nlp.NewRuleTokenizer()
	}
	logger.Info("UDPipe tokenizer enabled", "url", udpipeURL, "model", model)
	return u
}

// loadDictionary loads the word list at path and the words users accepted
func loadDictionary(db *database.DB, path string) (*dictionary.Speller, error) {
	speller, err := dictionary.Load(path)
	if err != nil {
		return nil, err
	}
	words, err := db.UserWords(context.Background())
	if err != nil {
		return nil, err
	}
	speller.Add(words...)
	return speller, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
