// Package repetition finds overused words: frequency ranking over a whole
// document and close repetitions within a word-distance window.
package repetition

import (
	"sort"
	"unicode/utf8"

	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/models"
)

// WordFrequencies returns the entries of the surface or lemma table (per
// RepeatedWordsUseLemma) whose key is long enough and which occur often
// enough, most frequent first. Ties keep first-occurrence order.
func WordFrequencies(doc *models.AnnotatedDocument, settings config.Settings) []*models.UniqueWord {
	table := doc.Table(settings.RepeatedWordsUseLemma)
	if table == nil {
		return nil
	}

	var out []*models.UniqueWord
	for _, w := range table.Words {
		if utf8.RuneCountInString(w.Key) < settings.RepeatedWordsMinWordLength {
			continue
		}
		if w.Count() < settings.RepeatedWordsMinWordFrequency {
			continue
		}
		out = append(out, w)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count() > out[j].Count()
	})
	return out
}

// Group is the set of occurrences of one key that lie close to another
// occurrence of the same key. Tokens are ordered by word index.
type Group struct {
	Key    string
	Tokens []*models.Token
}

// CloseWords returns, for every key of the surface or lemma table (per
// CloseWordsUseLemma), the occurrences that have another occurrence within
// CloseWordsMinDistanceBetweenWords words. A key is kept only when more than
// CloseWordsMinFrequency such occurrences exist. Groups are ordered by size,
// largest first; ties keep first-occurrence order.
func CloseWords(doc *models.AnnotatedDocument, settings config.Settings) []Group {
	table := doc.Table(settings.CloseWordsUseLemma)
	if table == nil {
		return nil
	}
	maxDistance := settings.CloseWordsMinDistanceBetweenWords
	minFrequency := settings.CloseWordsMinFrequency

	var groups []Group
	for _, w := range table.Words {
		if utf8.RuneCountInString(w.Key) < settings.CloseWordsMinWordLength {
			continue
		}
		if w.Count() < minFrequency+1 {
			continue
		}

		near := make([]bool, len(w.Tokens))
		n := 0
		mark := func(k int) {
			if !near[k] {
				near[k] = true
				n++
			}
		}
		for i := range w.Tokens {
			wi := doc.Tokens[w.Tokens[i]].WordIndex
			for j := i + 1; j < len(w.Tokens); j++ {
				if doc.Tokens[w.Tokens[j]].WordIndex-wi > maxDistance {
					break
				}
				mark(i)
				mark(j)
			}
		}
		if n <= minFrequency {
			continue
		}

		g := Group{Key: w.Key, Tokens: make([]*models.Token, 0, n)}
		for k, ti := range w.Tokens {
			if near[k] {
				g.Tokens = append(g.Tokens, &doc.Tokens[ti])
			}
		}
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Tokens) > len(groups[j].Tokens)
	})
	return groups
}

// PartitionCloseWords splits tokens into runs whose consecutive word indices
// differ by at most maxDistance. The input is sorted by word index first and
// is not modified. Empty input yields an empty result.
func PartitionCloseWords(tokens []*models.Token, maxDistance int) [][]*models.Token {
	if len(tokens) == 0 {
		return [][]*models.Token{}
	}

	sorted := append([]*models.Token(nil), tokens...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].WordIndex < sorted[j].WordIndex
	})

	partitions := [][]*models.Token{{sorted[0]}}
	for i := 1; i < len(sorted); i++ {
		last := len(partitions) - 1
		if sorted[i].WordIndex-sorted[i-1].WordIndex > maxDistance {
			partitions = append(partitions, []*models.Token{sorted[i]})
			continue
		}
		partitions[last] = append(partitions[last], sorted[i])
	}
	return partitions
}
