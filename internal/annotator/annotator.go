// Package annotator enriches a tokenized document with paragraphs, word
// indices, unique-word tables, aggregate counters and sentence length flags.
package annotator

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/nlp"
)

// CharsPerPage is the number of characters in one standard page
const CharsPerPage = 1800

var wordPattern = regexp.MustCompile(`^[\p{L}\p{N}_]`)

// Annotate builds an AnnotatedDocument from text and its tokenized form in a
// single left-to-right scan. It never fails: empty input yields zero counts.
// The tokens of doc are copied; doc itself is not modified.
func Annotate(text string, doc *models.Document, settings config.Settings) *models.AnnotatedDocument {
	ad := &models.AnnotatedDocument{
		UniqueWords:  models.NewWordTable(),
		UniqueLemmas: models.NewWordTable(),
	}
	if doc != nil {
		ad.Document = models.Document{
			Text:      doc.Text,
			Tokens:    append([]models.Token(nil), doc.Tokens...),
			Sentences: append([]models.Sentence(nil), doc.Sentences...),
		}
	}

	start := 0
	for i := range ad.Tokens {
		t := &ad.Tokens[i]
		t.Index = i

		if t.IsSpace() && strings.Contains(t.Text, "\n") {
			closeParagraph(ad, start, i)
			start = i
		}

		lower := nlp.Lower(t.Text)
		t.Lower = lower
		t.IsWord = wordPattern.MatchString(lower)
		if !t.IsWord {
			t.WordIndex = -1
			continue
		}

		t.WordIndex = len(ad.Words)
		ad.Words = append(ad.Words, i)
		ad.UniqueWords.Add(lower, i)
		ad.UniqueLemmas.Add(nlp.Lower(t.Lemma), i)
	}
	closeParagraph(ad, start, len(ad.Tokens))

	ad.TotalChars = utf8.RuneCountInString(strings.ReplaceAll(text, "\n", ""))
	ad.TotalWords = len(ad.Words)
	ad.TotalUniqueWords = ad.UniqueWords.Len()
	ad.TotalUniqueLemmas = ad.UniqueLemmas.Len()
	ad.TotalPages = math.RoundToEven(float64(ad.TotalChars)*100/CharsPerPage) / 100

	ClassifySentences(ad, settings)
	return ad
}

// closeParagraph records [start, end) as a paragraph unless it is empty.
func closeParagraph(ad *models.AnnotatedDocument, start, end int) {
	if end <= start {
		return
	}
	p := len(ad.Paragraphs)
	ad.Paragraphs = append(ad.Paragraphs, models.Paragraph{Start: start, End: end})
	for i := start; i < end; i++ {
		ad.Tokens[i].Paragraph = p
	}
}

// ClassifySentences flags each sentence as long or mid-length by counting
// word tokens of at least LongSentenceMinWordLength characters. Long takes
// priority; the two flags are never both set.
func ClassifySentences(ad *models.AnnotatedDocument, settings config.Settings) {
	for si := range ad.Sentences {
		s := &ad.Sentences[si]
		count := 0
		for i := s.Start; i < s.End; i++ {
			t := &ad.Tokens[i]
			t.Sentence = si
			if t.IsWord && utf8.RuneCountInString(t.Text) >= settings.LongSentenceMinWordLength {
				count++
			}
		}
		s.IsLong = count > settings.LongSentenceWordsHigh
		s.IsMid = !s.IsLong && count > settings.LongSentenceWordsMid
	}
}
