// Package nlp adapts tokenizers and taggers to the internal document model.
//
// Every Tokenizer returns a models.Document whose tokens cover the input text
// exactly: concatenating Text+Space over all tokens reproduces the input. A
// single trailing space is stored on the preceding token; any other
// whitespace run (newlines, tabs, repeated spaces) is a token of its own with
// POS "SPACE". Paragraph detection relies on the latter.
package nlp

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/zombar/stylecheck/internal/models"
)

// Tokenizer turns text into a tokenized, tagged document
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) (*models.Document, error)
}

// Lower lowercases s with Slovak casing rules and composes it to NFC so that
// keys built from decomposed input match their composed spelling.
func Lower(s string) string {
	return norm.NFC.String(cases.Lower(language.Slovak).String(s))
}

// rawToken is a tagged token before it is aligned onto the source text.
type rawToken struct {
	Form          string
	Lemma         string
	POS           string
	Dep           string
	Head          int // raw index of the parent, -1 for a root
	Morph         []models.Feature
	SentenceStart bool
}

// assemble aligns raw tokens onto text and builds a document, inserting
// whitespace tokens and trailing spaces so that the tokens cover the text.
func assemble(text string, raws []rawToken) (*models.Document, error) {
	doc := &models.Document{Text: text}
	rawToDoc := make([]int, len(raws))
	sentenceStarts := []int{}
	cursor := 0

	for ri, raw := range raws {
		ws := leadingSpace(text[cursor:])
		if ws != "" {
			addWhitespace(doc, ws, cursor)
			cursor += len(ws)
		}

		if !strings.HasPrefix(text[cursor:], raw.Form) {
			return nil, fmt.Errorf("token %d (%q) does not align with text at offset %d", ri, raw.Form, cursor)
		}

		idx := len(doc.Tokens)
		if raw.SentenceStart || ri == 0 {
			sentenceStarts = append(sentenceStarts, idx)
		}
		rawToDoc[ri] = idx

		lemma := raw.Lemma
		if lemma == "" || lemma == "_" {
			lemma = raw.Form
		}
		doc.Tokens = append(doc.Tokens, models.Token{
			Index:     idx,
			Text:      raw.Form,
			Lower:     Lower(raw.Form),
			Lemma:     lemma,
			POS:       raw.POS,
			Dep:       raw.Dep,
			Head:      raw.Head,
			Morph:     raw.Morph,
			Offset:    cursor,
			WordIndex: -1,
		})
		cursor += len(raw.Form)
	}

	if cursor < len(text) {
		ws := text[cursor:]
		if strings.TrimSpace(ws) != "" {
			return nil, fmt.Errorf("untokenized text at offset %d", cursor)
		}
		addWhitespace(doc, ws, cursor)
	}

	for i := range doc.Tokens {
		t := &doc.Tokens[i]
		if t.IsSpace() {
			t.Head = i
			continue
		}
		if t.Head < 0 || t.Head >= len(raws) {
			t.Head = i
		} else {
			t.Head = rawToDoc[t.Head]
		}
	}

	if len(doc.Tokens) > 0 && len(sentenceStarts) == 0 {
		sentenceStarts = append(sentenceStarts, 0)
	}
	if len(sentenceStarts) > 0 {
		sentenceStarts[0] = 0 // leading whitespace belongs to the first sentence
	}
	for si, start := range sentenceStarts {
		end := len(doc.Tokens)
		if si+1 < len(sentenceStarts) {
			end = sentenceStarts[si+1]
		}
		doc.Sentences = append(doc.Sentences, models.Sentence{Start: start, End: end})
		for i := start; i < end; i++ {
			doc.Tokens[i].Sentence = si
		}
	}

	return doc, nil
}

// addWhitespace attaches ws to the last token when it is a single space and
// otherwise appends it as a SPACE token.
func addWhitespace(doc *models.Document, ws string, offset int) {
	n := len(doc.Tokens)
	if ws == " " && n > 0 && !doc.Tokens[n-1].IsSpace() && doc.Tokens[n-1].Space == "" {
		doc.Tokens[n-1].Space = ws
		return
	}
	doc.Tokens = append(doc.Tokens, models.Token{
		Index:     n,
		Text:      ws,
		Lower:     ws,
		Lemma:     ws,
		POS:       "SPACE",
		Head:      n,
		Offset:    offset,
		WordIndex: -1,
	})
}

func leadingSpace(s string) string {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return s[:i]
}
