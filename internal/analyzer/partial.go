package analyzer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zombar/stylecheck/internal/annotator"
	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/nlp"
)

// Reasons a partial re-analysis falls back to a full one
const (
	fallbackNoDocument = "no_document"
	fallbackUnmapped   = "unmapped_edit"
	fallbackMismatch   = "splice_mismatch"
)

// PartialAnalyze re-analyzes newText, the result of editing prev around byte
// offset editPosition of prev.Text. Only the paragraph holding the edit and
// its neighbours are tokenized again; the tokens before and after them are
// taken from prev. Annotation is always rebuilt over the whole result.
//
// When the edit cannot be mapped onto prev, PartialAnalyze falls back to a
// full analysis; partial reports which path produced the document.
func (a *Analyzer) PartialAnalyze(ctx context.Context, newText string, prev *models.AnnotatedDocument, editPosition int, settings config.Settings) (_ *models.AnnotatedDocument, partial bool, _ error) {
	if err := settings.Validate(); err != nil {
		return nil, false, err
	}

	ctx, span := a.tracer.Start(ctx, "analyzer.PartialAnalyze")
	defer span.End()
	start := time.Now()

	doc, reason, err := a.splice(ctx, newText, prev, editPosition)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.metrics.ObserveAnalysis("partial", "error", time.Since(start))
		return nil, false, err
	}
	if reason != "" {
		span.SetAttributes(attribute.String("partial.fallback", reason))
		a.metrics.PartialFallback(reason)
		a.logger.Debug("partial analysis fell back to full analysis", "reason", reason, "edit_position", editPosition)
		ad, err := a.FullAnalyze(ctx, newText, settings)
		return ad, false, err
	}

	ad := annotator.Annotate(newText, doc, settings)
	span.SetAttributes(attribute.Int("doc.tokens", len(ad.Tokens)))
	a.metrics.ObserveAnalysis("partial", "ok", time.Since(start))
	return ad, true, nil
}

// splice tokenizes the edited span of newText and joins it with the
// untouched tokens of prev. A non-empty reason means the edit could not be
// mapped and the caller must fall back to a full analysis.
func (a *Analyzer) splice(ctx context.Context, newText string, prev *models.AnnotatedDocument, editPosition int) (*models.Document, string, error) {
	if prev == nil || len(prev.Tokens) == 0 {
		return nil, fallbackNoDocument, nil
	}
	start, end, ok := editSpan(prev, editPosition)
	if !ok {
		return nil, fallbackNoDocument, nil
	}

	oldStart := prev.Tokens[start].Offset
	oldEnd := prev.Tokens[end-1].Extent()
	newEnd := oldEnd + len(newText) - len(prev.Text)
	if newEnd < oldStart || newEnd > len(newText) {
		return nil, fallbackUnmapped, nil
	}
	// the text outside the span must be unchanged
	if newText[:oldStart] != prev.Text[:oldStart] || newText[newEnd:] != prev.Text[oldEnd:] {
		return nil, fallbackUnmapped, nil
	}

	middle, err := a.tokenize(ctx, newText[oldStart:newEnd])
	if err != nil {
		return nil, "", err
	}

	merged := nlp.FromDocs(
		nlp.Slice(&prev.Document, 0, start),
		middle,
		nlp.Slice(&prev.Document, end, len(prev.Tokens)),
	)
	if merged.Text != newText {
		return nil, fallbackMismatch, nil
	}
	joinSpaceSentences(merged)
	return merged, "", nil
}

// editSpan returns the token range [start, end) covering the paragraph at
// pos together with the paragraphs before and after it.
func editSpan(doc *models.AnnotatedDocument, pos int) (start, end int, ok bool) {
	i, ok := doc.TokenAt(pos)
	if !ok || len(doc.Paragraphs) == 0 {
		return 0, 0, false
	}
	p := doc.Tokens[i].Paragraph
	if p < 0 || p >= len(doc.Paragraphs) {
		return 0, 0, false
	}
	first := max(p-1, 0)
	last := min(p+1, len(doc.Paragraphs)-1)
	return doc.Paragraphs[first].Start, doc.Paragraphs[last].End, true
}

// joinSpaceSentences folds sentences made only of whitespace into the
// sentence before them. Cutting at a paragraph boundary separates the newline
// token from the sentence it trails; this restores the segmentation a full
// tokenization produces.
func joinSpaceSentences(doc *models.Document) {
	if len(doc.Sentences) < 2 {
		return
	}
	out := doc.Sentences[:1]
	for _, s := range doc.Sentences[1:] {
		if onlySpace(doc, s) {
			out[len(out)-1].End = s.End
			continue
		}
		out = append(out, s)
	}
	doc.Sentences = out
}

func onlySpace(doc *models.Document, s models.Sentence) bool {
	for i := s.Start; i < s.End; i++ {
		if !doc.Tokens[i].IsSpace() {
			return false
		}
	}
	return true
}
