package repetition

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/stylecheck/internal/annotator"
	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/nlp"
)

func annotate(t *testing.T, text string) *models.AnnotatedDocument {
	t.Helper()
	doc, err := nlp.NewRuleTokenizer().Tokenize(context.Background(), text)
	require.NoError(t, err)
	return annotator.Annotate(text, doc, config.Default())
}

func repeat(word string, n int) string {
	return strings.Repeat(word+" ", n)
}

func TestWordFrequencies(t *testing.T) {
	text := repeat("jeden", 2) + repeat("dva", 4) + repeat("tri", 6) + repeat("štyri", 8) + repeat("päť", 10)
	ad := annotate(t, text)

	settings := config.Default()
	settings.RepeatedWordsMinWordLength = 1
	settings.RepeatedWordsMinWordFrequency = 1

	words := WordFrequencies(ad, settings)
	require.Len(t, words, 5)

	expected := []struct {
		key   string
		count int
	}{
		{"päť", 10}, {"štyri", 8}, {"tri", 6}, {"dva", 4}, {"jeden", 2},
	}
	for i, e := range expected {
		assert.Equal(t, e.key, words[i].Key)
		assert.Equal(t, e.count, words[i].Count())
	}
}

func TestWordFrequenciesTiesKeepFirstOccurrence(t *testing.T) {
	ad := annotate(t, "beta alfa beta alfa gama")
	settings := config.Default()
	settings.RepeatedWordsMinWordFrequency = 1

	words := WordFrequencies(ad, settings)
	require.Len(t, words, 3)
	assert.Equal(t, "beta", words[0].Key)
	assert.Equal(t, "alfa", words[1].Key)
	assert.Equal(t, "gama", words[2].Key)
}

func TestWordFrequenciesFilter(t *testing.T) {
	text := repeat("a", 12) + repeat("ako", 3) + repeat("lebo", 11) + repeat("Lebo", 1) + "koniec"
	ad := annotate(t, text)

	for _, useLemma := range []bool{false, true} {
		for _, minLen := range []int{1, 2, 3, 4, 5} {
			for _, minFreq := range []int{1, 3, 10, 12, 13} {
				settings := config.Default()
				settings.RepeatedWordsUseLemma = useLemma
				settings.RepeatedWordsMinWordLength = minLen
				settings.RepeatedWordsMinWordFrequency = minFreq

				words := WordFrequencies(ad, settings)
				for i, w := range words {
					assert.GreaterOrEqual(t, len([]rune(w.Key)), minLen)
					assert.GreaterOrEqual(t, w.Count(), minFreq)
					if i > 0 {
						assert.GreaterOrEqual(t, words[i-1].Count(), w.Count())
					}
				}
			}
		}
	}

	settings := config.Default()
	settings.RepeatedWordsMinWordLength = 1
	words := WordFrequencies(ad, settings)
	require.Len(t, words, 2)
	assert.Equal(t, "a", words[0].Key)
	assert.Equal(t, "lebo", words[1].Key, "case-folded occurrences share one entry")
	assert.Equal(t, 12, words[1].Count())
}

func TestWordFrequenciesByLemma(t *testing.T) {
	doc := &models.Document{
		Text: "pes psa psovi",
		Tokens: []models.Token{
			{Text: "pes", Space: " ", Lemma: "pes", Offset: 0},
			{Text: "psa", Space: " ", Lemma: "pes", Offset: 4, Head: 1},
			{Text: "psovi", Lemma: "pes", Offset: 8, Head: 2},
		},
		Sentences: []models.Sentence{{Start: 0, End: 3}},
	}
	ad := annotator.Annotate(doc.Text, doc, config.Default())

	settings := config.Default()
	settings.RepeatedWordsMinWordFrequency = 2
	assert.Empty(t, WordFrequencies(ad, settings))

	settings.RepeatedWordsUseLemma = true
	words := WordFrequencies(ad, settings)
	require.Len(t, words, 1)
	assert.Equal(t, "pes", words[0].Key)
	assert.Equal(t, 3, words[0].Count())
}

func TestCloseWords(t *testing.T) {
	ad := annotate(t, "Toto je testovací text. Toto je veta.")
	settings := config.Default()
	settings.CloseWordsMinFrequency = 1

	groups := CloseWords(ad, settings)
	require.Len(t, groups, 1)
	assert.Equal(t, "toto", groups[0].Key)
	require.Len(t, groups[0].Tokens, 2)
	assert.Equal(t, 0, groups[0].Tokens[0].WordIndex)
	assert.Equal(t, 4, groups[0].Tokens[1].WordIndex)

	assert.Empty(t, CloseWords(ad, config.Default()), "default frequency needs four close occurrences")
}

func TestCloseWordsDistance(t *testing.T) {
	// slovo at word indices 0, 2, 4, then 20 and 40 far away; the one-letter
	// filler is below the default minimum word length
	text := "slovo x slovo x slovo " + repeat("y", 15) + "slovo " + repeat("z", 19) + "slovo"
	ad := annotate(t, text)

	settings := config.Default()
	settings.CloseWordsMinFrequency = 2
	settings.CloseWordsMinDistanceBetweenWords = 5

	groups := CloseWords(ad, settings)
	require.Len(t, groups, 1)
	assert.Equal(t, "slovo", groups[0].Key)
	var indices []int
	for _, tok := range groups[0].Tokens {
		indices = append(indices, tok.WordIndex)
	}
	assert.Equal(t, []int{0, 2, 4}, indices)

	settings.CloseWordsMinFrequency = 3
	assert.Empty(t, CloseWords(ad, settings), "three close occurrences do not exceed a frequency of three")

	settings.CloseWordsMinFrequency = 2
	settings.CloseWordsMinDistanceBetweenWords = 20
	groups = CloseWords(ad, settings)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Tokens, 5)
}

func TestCloseWordsOrderedBySize(t *testing.T) {
	text := "malý pes " + repeat("veľký", 4) + repeat("malý", 2)
	ad := annotate(t, text)

	settings := config.Default()
	settings.CloseWordsMinFrequency = 1
	groups := CloseWords(ad, settings)
	require.Len(t, groups, 2)
	assert.Equal(t, "veľký", groups[0].Key)
	assert.Equal(t, "malý", groups[1].Key)
	assert.Len(t, groups[0].Tokens, 4)
	assert.Len(t, groups[1].Tokens, 3)
}

func TestPartitionCloseWords(t *testing.T) {
	tok := func(wi int) *models.Token { return &models.Token{WordIndex: wi} }
	indices := func(parts [][]*models.Token) [][]int {
		out := make([][]int, len(parts))
		for i, p := range parts {
			for _, t := range p {
				out[i] = append(out[i], t.WordIndex)
			}
		}
		return out
	}

	input := []*models.Token{tok(30), tok(1), tok(5), tok(200), tok(90)}
	parts := PartitionCloseWords(input, 25)
	assert.Equal(t, [][]int{{1, 5, 30}, {90}, {200}}, indices(parts))
	assert.Equal(t, 30, input[0].WordIndex, "input order untouched")

	parts = PartitionCloseWords(input, 1000)
	assert.Equal(t, [][]int{{1, 5, 30, 90, 200}}, indices(parts))

	parts = PartitionCloseWords(input, 0)
	assert.Len(t, parts, 5)

	empty := PartitionCloseWords(nil, 10)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
