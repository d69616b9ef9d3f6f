package nlp

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zombar/stylecheck/internal/models"
)

// RuleTokenizer is a dependency-free tokenizer used when no tagging service
// is configured. It segments words, numbers, punctuation and sentences but
// assigns no morphology or dependency structure, so the grammar heuristics
// stay silent on its output. Lemmas are lowercased surface forms.
type RuleTokenizer struct{}

// NewRuleTokenizer creates a RuleTokenizer
func NewRuleTokenizer() *RuleTokenizer {
	return &RuleTokenizer{}
}

// Tokenize implements Tokenizer
func (r *RuleTokenizer) Tokenize(ctx context.Context, text string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return assemble(text, scan(text))
}

const terminalPunct = ".!?…"

// scan splits s with a rune-by-rune state machine:
//   - whitespace runs are skipped (assemble restores them)
//   - digit runs with inner '.' or ',' followed by a digit form one number
//   - letters join across a single inner hyphen or apostrophe
//   - repeated identical punctuation marks form one token ("...", "!!")
func scan(s string) []rawToken {
	var out []rawToken
	breakPending := false
	newline := false

	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])

		if unicode.IsSpace(r) {
			if r == '\n' {
				newline = true
			}
			i += size
			continue
		}

		start := i
		var pos string
		switch {
		case unicode.IsDigit(r):
			i = scanNumber(s, i)
			pos = "NUM"
		case unicode.IsLetter(r) || r == '_':
			i = scanWord(s, i)
			pos = "X"
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			i += size
			for i < len(s) {
				nr, ns := utf8.DecodeRuneInString(s[i:])
				if nr != r {
					break
				}
				i += ns
			}
			pos = "PUNCT"
			if unicode.IsSymbol(r) {
				pos = "SYM"
			}
		default:
			i += size
			pos = "X"
		}

		form := s[start:i]
		sentenceStart := newline || (breakPending && pos != "PUNCT")
		if sentenceStart {
			breakPending = false
		}
		newline = false

		if pos == "PUNCT" && strings.ContainsAny(form, terminalPunct) {
			breakPending = true
		}

		out = append(out, rawToken{
			Form:          form,
			Lemma:         Lower(form),
			POS:           pos,
			Head:          -1,
			SentenceStart: sentenceStart,
		})
	}
	return out
}

func scanNumber(s string, pos int) int {
	i := pos
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsDigit(r) {
			i += size
			continue
		}
		if (r == '.' || r == ',') && i+size < len(s) {
			nr, _ := utf8.DecodeRuneInString(s[i+size:])
			if unicode.IsDigit(nr) {
				i += size
				continue
			}
		}
		break
	}
	return i
}

func scanWord(s string, pos int) int {
	i := pos
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if isWordRune(r) {
			i += size
			continue
		}
		if r == '-' || r == '\'' || r == '’' {
			if i+size < len(s) {
				nr, _ := utf8.DecodeRuneInString(s[i+size:])
				if unicode.IsLetter(nr) {
					i += size
					continue
				}
			}
		}
		break
	}
	return i
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}
