// Package dictionary provides the Slovak spelling dictionary used by the
// grammar engine and the suggestion endpoint.
package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/f1monkey/spellchecker"

	"github.com/zombar/stylecheck/internal/nlp"
)

// Alphabet is the set of letters the checker builds candidates from
const Alphabet = "aáäbcčdďeéfghiíjklĺľmnňoóôpqrŕsštťuúvwxyýzž"

// DefaultSuggestions is the number of suggestions returned when the caller
// does not ask for a specific count
const DefaultSuggestions = 5

// Speller is a word-list backed spelling dictionary. Lookups are case
// insensitive. It is safe for concurrent use; words can be added while
// documents are being checked.
type Speller struct {
	mu sync.RWMutex
	sc *spellchecker.Spellchecker
}

// New creates a Speller containing words
func New(words ...string) (*Speller, error) {
	sc, err := spellchecker.New(Alphabet, spellchecker.WithMaxErrors(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create spellchecker: %w", err)
	}
	s := &Speller{sc: sc}
	s.Add(words...)
	return s, nil
}

// Load creates a Speller from a word list file. Both plain lists (one word
// per line) and hunspell .dic files ("word/FLAGS", first line a count) are
// accepted.
func Load(path string) (*Speller, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer f.Close()

	words, err := ReadWords(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", path, err)
	}
	return New(words...)
}

// ReadWords parses a word list
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			if _, err := strconv.Atoi(line); err == nil {
				continue
			}
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, _, _ := strings.Cut(line, "/")
		words = append(words, word)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Add inserts words into the dictionary
func (s *Speller) Add(words ...string) {
	if len(words) == 0 {
		return
	}
	normalized := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			normalized = append(normalized, nlp.Lower(w))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sc.Add(normalized...)
}

// IsCorrect reports whether word is in the dictionary
func (s *Speller) IsCorrect(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sc.IsCorrect(nlp.Lower(word))
}

// Suggest returns up to n corrections for word, best first. n <= 0 means
// DefaultSuggestions. A word without any close match yields nil.
func (s *Speller) Suggest(word string, n int) []string {
	if n <= 0 {
		n = DefaultSuggestions
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	suggestions, err := s.sc.Suggest(nlp.Lower(word), n)
	if err != nil {
		return nil
	}
	return suggestions
}
