// Package analyzer is the service object of the writing assistant. It owns
// the injected collaborators (tokenizer, spelling dictionary, thesaurus) and
// exposes full and partial analysis plus every diagnostic family on top of
// the resulting AnnotatedDocument.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/stylecheck/internal/annotator"
	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/grammar"
	"github.com/zombar/stylecheck/internal/metrics"
	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/nlp"
	"github.com/zombar/stylecheck/internal/readability"
	"github.com/zombar/stylecheck/internal/repetition"
)

// ErrUnavailable is returned when a collaborator needed by an operation is
// missing or failing.
var ErrUnavailable = errors.New("collaborator unavailable")

// SuggestionLimit is the number of spelling suggestions attached to a report
const SuggestionLimit = 5

// Dictionary is the spelling dictionary service
type Dictionary interface {
	IsCorrect(word string) bool
	Suggest(word string, n int) []string
	Add(words ...string)
}

// Thesaurus maps a lemma to its synonyms
type Thesaurus interface {
	Lookup(ctx context.Context, lemma string) (*models.ThesaurusEntry, error)
}

// Config holds the collaborators of an Analyzer. Only Tokenizer is required.
type Config struct {
	Tokenizer  nlp.Tokenizer
	Dictionary Dictionary
	Thesaurus  Thesaurus
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Analyzer performs document analysis
type Analyzer struct {
	tokenizer nlp.Tokenizer
	dict      Dictionary
	thesaurus Thesaurus
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// New creates an Analyzer from cfg
func New(cfg Config) (*Analyzer, error) {
	if cfg.Tokenizer == nil {
		return nil, fmt.Errorf("%w: no tokenizer configured", ErrUnavailable)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		tokenizer: cfg.Tokenizer,
		dict:      cfg.Dictionary,
		thesaurus: cfg.Thesaurus,
		logger:    logger,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer("stylecheck/analyzer"),
	}, nil
}

// HasDictionary reports whether a spelling dictionary is configured
func (a *Analyzer) HasDictionary() bool {
	return a.dict != nil
}

// HasThesaurus reports whether a thesaurus is configured
func (a *Analyzer) HasThesaurus() bool {
	return a.thesaurus != nil
}

// FullAnalyze tokenizes the whole text and annotates it
func (a *Analyzer) FullAnalyze(ctx context.Context, text string, settings config.Settings) (*models.AnnotatedDocument, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "analyzer.FullAnalyze",
		trace.WithAttributes(attribute.Int("text.bytes", len(text))))
	defer span.End()
	start := time.Now()

	doc, err := a.tokenize(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.metrics.ObserveAnalysis("full", "error", time.Since(start))
		return nil, err
	}

	ad := annotator.Annotate(text, doc, settings)
	span.SetAttributes(
		attribute.Int("doc.tokens", len(ad.Tokens)),
		attribute.Int("doc.words", ad.TotalWords),
		attribute.Int("doc.paragraphs", len(ad.Paragraphs)),
	)
	a.metrics.ObserveAnalysis("full", "ok", time.Since(start))
	a.logger.Debug("full analysis complete",
		"tokens", len(ad.Tokens),
		"words", ad.TotalWords,
		"duration_ms", time.Since(start).Milliseconds())
	return ad, nil
}

func (a *Analyzer) tokenize(ctx context.Context, text string) (*models.Document, error) {
	doc, err := a.tokenizer.Tokenize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: tokenizer: %w", ErrUnavailable, err)
	}
	return doc, nil
}

// EvaluateReadability returns the readability score of doc
func (a *Analyzer) EvaluateReadability(doc *models.AnnotatedDocument) float64 {
	return readability.Evaluate(doc)
}

// WordFrequencies returns the frequently repeated words of doc
func (a *Analyzer) WordFrequencies(doc *models.AnnotatedDocument, settings config.Settings) []*models.UniqueWord {
	return repetition.WordFrequencies(doc, settings)
}

// CloseWords returns the keys repeated within a short word distance
func (a *Analyzer) CloseWords(doc *models.AnnotatedDocument, settings config.Settings) []repetition.Group {
	return repetition.CloseWords(doc, settings)
}

// PartitionCloseWords splits the occurrences of one key into proximity runs
func (a *Analyzer) PartitionCloseWords(tokens []*models.Token, maxDistance int) [][]*models.Token {
	return repetition.PartitionCloseWords(tokens, maxDistance)
}

// Spellcheck runs the grammar heuristics on doc, marking tokens in place
func (a *Analyzer) Spellcheck(ctx context.Context, doc *models.AnnotatedDocument) (grammar.Stats, error) {
	if a.dict == nil {
		return grammar.Stats{}, fmt.Errorf("%w: no spelling dictionary configured", ErrUnavailable)
	}

	_, span := a.tracer.Start(ctx, "analyzer.Spellcheck")
	defer span.End()

	stats := grammar.Spellcheck(doc, a.dict)

	byKind := make(map[string]int, len(stats.Errors))
	total := 0
	for kind, n := range stats.Errors {
		byKind[string(kind)] = n
		total += n
	}
	a.metrics.GrammarErrors(byKind)
	a.metrics.DictionaryLookups(stats.Lookups)
	span.SetAttributes(
		attribute.Int("spellcheck.lookups", stats.Lookups),
		attribute.Int("spellcheck.errors", total),
	)
	return stats, nil
}

// Suggest returns up to n spelling corrections for word
func (a *Analyzer) Suggest(word string, n int) ([]string, error) {
	if a.dict == nil {
		return nil, fmt.Errorf("%w: no spelling dictionary configured", ErrUnavailable)
	}
	return a.dict.Suggest(word, n), nil
}

// AddWords adds user-accepted words to the spelling dictionary
func (a *Analyzer) AddWords(words ...string) error {
	if a.dict == nil {
		return fmt.Errorf("%w: no spelling dictionary configured", ErrUnavailable)
	}
	a.dict.Add(words...)
	return nil
}

// Lookup returns the thesaurus entry for lemma
func (a *Analyzer) Lookup(ctx context.Context, lemma string) (*models.ThesaurusEntry, error) {
	if a.thesaurus == nil {
		return nil, fmt.Errorf("%w: no thesaurus configured", ErrUnavailable)
	}

	ctx, span := a.tracer.Start(ctx, "analyzer.Lookup", trace.WithAttributes(attribute.String("lemma", lemma)))
	defer span.End()

	entry, err := a.thesaurus.Lookup(ctx, lemma)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: thesaurus: %w", ErrUnavailable, err)
	}
	return entry, nil
}
