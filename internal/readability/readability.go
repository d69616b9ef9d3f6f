// Package readability computes a bounded readability index for an annotated
// document. Higher scores mean simpler text.
package readability

import (
	"math"
	"unicode/utf8"

	"github.com/zombar/stylecheck/internal/models"
)

// MaxReadability is the upper bound of the score
const MaxReadability = 50

// minSentenceChars is the length a sentence must exceed to be counted;
// shorter ones are segmentation noise.
const minSentenceChars = 2

// Evaluate returns the readability score of doc in [0, MaxReadability].
// Documents with at most one word, or without any real sentence, score 0.
func Evaluate(doc *models.AnnotatedDocument) float64 {
	if doc == nil || doc.TotalWords <= 1 || doc.TotalUniqueWords == 0 {
		return 0
	}

	sentences := 0
	for _, s := range doc.Sentences {
		if utf8.RuneCountInString(doc.SentenceText(s)) > minSentenceChars {
			sentences++
		}
	}
	if sentences == 0 {
		return 0
	}

	words := float64(doc.TotalWords)
	typeToken := words / float64(doc.TotalUniqueWords)
	avgSentence := words / float64(sentences)
	avgWord := float64(doc.TotalChars) / words / 2

	index := MaxReadability - avgSentence*avgWord/typeToken
	return MaxReadability - math.Max(0, math.RoundToEven(index))
}
