package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/textcheck"
)

// BuildReport runs every diagnostic family enabled in settings.Features over
// doc and collects the results. Spellcheck marks tokens of doc in place.
// When spellcheck is enabled but no dictionary is configured the report is
// not built and ErrUnavailable is returned.
func (a *Analyzer) BuildReport(ctx context.Context, doc *models.AnnotatedDocument, settings config.Settings) (*models.Report, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.Features.Spellcheck && a.dict == nil {
		return nil, fmt.Errorf("%w: spellcheck enabled without a dictionary", ErrUnavailable)
	}

	ctx, span := a.tracer.Start(ctx, "analyzer.BuildReport")
	defer span.End()
	start := time.Now()

	report := &models.Report{
		CharacterCount:   doc.TotalChars,
		WordCount:        doc.TotalWords,
		UniqueWords:      doc.TotalUniqueWords,
		UniqueLemmas:     doc.TotalUniqueLemmas,
		SentenceCount:    len(doc.Sentences),
		ParagraphCount:   len(doc.Paragraphs),
		Pages:            doc.TotalPages,
		ReadabilityScore: a.EvaluateReadability(doc),
	}

	features := settings.Features
	if features.FrequentWords {
		for _, w := range a.WordFrequencies(doc, settings) {
			report.FrequentWords = append(report.FrequentWords, models.WordFrequency{Word: w.Key, Count: w.Count()})
		}
	}

	if features.CloseWords {
		for _, g := range a.CloseWords(doc, settings) {
			group := models.CloseWordGroup{Key: g.Key, Count: len(g.Tokens)}
			for _, part := range a.PartitionCloseWords(g.Tokens, settings.CloseWordsMinDistanceBetweenWords) {
				refs := make([]models.TokenRef, 0, len(part))
				for _, t := range part {
					refs = append(refs, tokenRef(t))
				}
				group.Partitions = append(group.Partitions, refs)
			}
			report.CloseWords = append(report.CloseWords, group)
		}
	}

	if features.LongSentences {
		report.LongSentences = sentenceFlags(doc)
	}

	if features.Spellcheck {
		if _, err := a.Spellcheck(ctx, doc); err != nil {
			return nil, err
		}
		report.GrammarErrors = a.grammarIssues(doc)
	}

	report.TextIssues = textcheck.Run(doc.Text, features)

	a.metrics.ObserveAnalysis("report", "ok", time.Since(start))
	return report, nil
}

func tokenRef(t *models.Token) models.TokenRef {
	return models.TokenRef{
		Index:     t.Index,
		WordIndex: t.WordIndex,
		Offset:    t.Offset,
		Text:      t.Text,
	}
}

// sentenceFlags returns the byte range of each mid or long sentence,
// excluding whitespace at either end.
func sentenceFlags(doc *models.AnnotatedDocument) []models.SentenceFlag {
	var flags []models.SentenceFlag
	for _, s := range doc.Sentences {
		if !s.IsMid && !s.IsLong {
			continue
		}
		first, last := s.Start, s.End-1
		for first < last && doc.Tokens[first].IsSpace() {
			first++
		}
		for last > first && doc.Tokens[last].IsSpace() {
			last--
		}
		length := "mid"
		if s.IsLong {
			length = "long"
		}
		flags = append(flags, models.SentenceFlag{
			Start:  doc.Tokens[first].Offset,
			End:    doc.Tokens[last].End(),
			Length: length,
		})
	}
	return flags
}

// grammarIssues lists the flagged tokens of doc. Spelling errors carry
// dictionary suggestions, looked up once per lowercased form.
func (a *Analyzer) grammarIssues(doc *models.AnnotatedDocument) []models.GrammarIssue {
	var issues []models.GrammarIssue
	cache := map[string][]string{}
	for i := range doc.Tokens {
		t := &doc.Tokens[i]
		if !t.HasGrammarError {
			continue
		}
		issue := models.GrammarIssue{TokenRef: tokenRef(t), Kind: t.GrammarError}
		if t.GrammarError == models.KindSpelling {
			suggestions, ok := cache[t.Lower]
			if !ok {
				suggestions = a.dict.Suggest(t.Text, SuggestionLimit)
				cache[t.Lower] = suggestions
			}
			issue.Suggestions = suggestions
		}
		issues = append(issues, issue)
	}
	return issues
}
