// Package textcheck finds surface-level issues directly in raw text:
// adjacent spaces, repeated punctuation, trailing spaces and quotation marks
// that do not follow Slovak typography („…“).
package textcheck

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/models"
)

const (
	openQuote  = "„"
	closeQuote = "“"
)

var (
	adjacentSpaces = regexp.MustCompile(` {2,}`)
	trailingSpaces = regexp.MustCompile(`[ \t]+(\n|$)`)
)

// Run executes the checks enabled in features and returns their issues
// ordered by offset.
func Run(text string, features config.Features) []models.TextIssue {
	var issues []models.TextIssue
	if features.MultipleSpaces {
		issues = append(issues, MultipleSpaces(text)...)
	}
	if features.MultiplePunctuation {
		issues = append(issues, MultiplePunctuation(text)...)
	}
	if features.TrailingSpaces {
		issues = append(issues, TrailingSpaces(text)...)
	}
	if features.QuoteCorrections {
		issues = append(issues, Quotes(text)...)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Offset < issues[j].Offset
	})
	return issues
}

// MultipleSpaces reports runs of spaces between words. Runs that start or
// end a line are indentation or trailing space and are not reported here.
func MultipleSpaces(text string) []models.TextIssue {
	var issues []models.TextIssue
	for _, m := range adjacentSpaces.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		if start == 0 || text[start-1] == '\n' || end == len(text) || text[end] == '\n' {
			continue
		}
		issues = append(issues, models.TextIssue{
			Kind:        models.IssueMultipleSpaces,
			Offset:      start,
			Length:      end - start,
			Replacement: " ",
		})
	}
	return issues
}

// MultiplePunctuation reports a punctuation mark repeated by mistake (",,",
// "!!"). An ellipsis of exactly three dots is accepted; other dot runs are
// replaced by a single dot (two) or an ellipsis (four and more).
func MultiplePunctuation(text string) []models.TextIssue {
	var issues []models.TextIssue
	for i := 0; i < len(text); {
		c := text[i]
		if !strings.ContainsRune(",.;:!?", rune(c)) {
			i++
			continue
		}
		j := i + 1
		for j < len(text) && text[j] == c {
			j++
		}
		n := j - i
		if n > 1 && !(c == '.' && n == 3) {
			replacement := string(c)
			if c == '.' && n > 3 {
				replacement = "..."
			}
			issues = append(issues, models.TextIssue{
				Kind:        models.IssueMultiplePunctuation,
				Offset:      i,
				Length:      n,
				Replacement: replacement,
			})
		}
		i = j
	}
	return issues
}

// TrailingSpaces reports spaces and tabs at the end of a line
func TrailingSpaces(text string) []models.TextIssue {
	var issues []models.TextIssue
	for _, m := range trailingSpaces.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[2]
		issues = append(issues, models.TextIssue{
			Kind:   models.IssueTrailingSpaces,
			Offset: start,
			Length: end - start,
		})
	}
	return issues
}

// Quotes reports double quotation marks that are not the Slovak „ and “. A
// mark is an opening one when it starts the text or follows whitespace or an
// opening bracket; otherwise it closes.
func Quotes(text string) []models.TextIssue {
	var issues []models.TextIssue
	prev := rune(-1)
	for i, r := range text {
		switch r {
		case '"', '“', '”', '„', '«', '»':
			want := closeQuote
			if prev == -1 || unicode.IsSpace(prev) || strings.ContainsRune("([{", prev) {
				want = openQuote
			}
			if string(r) != want {
				issues = append(issues, models.TextIssue{
					Kind:        models.IssueQuotes,
					Offset:      i,
					Length:      utf8.RuneLen(r),
					Replacement: want,
				})
			}
		}
		prev = r
	}
	return issues
}
