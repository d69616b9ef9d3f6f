package nlp

import (
	"strings"

	"github.com/zombar/stylecheck/internal/models"
)

// Slice returns tokens [start, end) of doc as a standalone document. Heads
// that point outside the range become roots, sentences are clipped to the
// range, and the text runs from the first token to the trailing space of the
// last one. Annotation fields on the tokens are copied unchanged.
func Slice(doc *models.Document, start, end int) *models.Document {
	if start < 0 {
		start = 0
	}
	if end > len(doc.Tokens) {
		end = len(doc.Tokens)
	}
	if start >= end {
		return &models.Document{}
	}

	textStart := doc.Tokens[start].Offset
	textEnd := doc.Tokens[end-1].Extent()
	out := &models.Document{
		Text:   doc.Text[textStart:textEnd],
		Tokens: make([]models.Token, 0, end-start),
	}

	for i := start; i < end; i++ {
		t := doc.Tokens[i]
		t.Index = i - start
		t.Offset -= textStart
		if t.Head >= start && t.Head < end {
			t.Head -= start
		} else {
			t.Head = t.Index
		}
		t.Morph = append([]models.Feature(nil), t.Morph...)
		out.Tokens = append(out.Tokens, t)
	}

	for _, s := range doc.Sentences {
		if s.End <= start || s.Start >= end {
			continue
		}
		clipped := models.Sentence{Start: max(s.Start, start) - start, End: min(s.End, end) - start}
		out.Sentences = append(out.Sentences, clipped)
	}
	for si, s := range out.Sentences {
		for i := s.Start; i < s.End; i++ {
			out.Tokens[i].Sentence = si
		}
	}

	return out
}

// FromDocs concatenates documents into one without re-tokenizing. Texts are
// joined verbatim; token indices, heads, offsets and sentence ranges are
// rebased onto the combined document.
func FromDocs(docs ...*models.Document) *models.Document {
	out := &models.Document{}
	var text strings.Builder

	for _, d := range docs {
		if d == nil {
			continue
		}
		tokenBase := len(out.Tokens)
		textBase := text.Len()
		sentenceBase := len(out.Sentences)
		text.WriteString(d.Text)

		for _, t := range d.Tokens {
			t.Index += tokenBase
			t.Head += tokenBase
			t.Offset += textBase
			t.Sentence += sentenceBase
			out.Tokens = append(out.Tokens, t)
		}
		for _, s := range d.Sentences {
			out.Sentences = append(out.Sentences, models.Sentence{
				Start: s.Start + tokenBase,
				End:   s.End + tokenBase,
			})
		}
	}

	out.Text = text.String()
	return out
}
