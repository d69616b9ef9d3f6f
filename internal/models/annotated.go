package models

// UniqueWord groups every occurrence of one key (lowercased surface form or
// lowercased lemma). Tokens holds document token indices in word order.
type UniqueWord struct {
	Key    string `json:"key"`
	Tokens []int  `json:"tokens"`
}

// Count returns the number of occurrences.
func (u *UniqueWord) Count() int {
	return len(u.Tokens)
}

// WordTable is an insertion-ordered key → UniqueWord table.
type WordTable struct {
	Words []*UniqueWord `json:"words"`
	index map[string]int
}

// NewWordTable returns an empty table.
func NewWordTable() *WordTable {
	return &WordTable{index: make(map[string]int)}
}

// Add appends token i to the entry for key, creating it on first sight.
func (t *WordTable) Add(key string, i int) {
	if t.index == nil {
		t.reindex()
	}
	if pos, ok := t.index[key]; ok {
		t.Words[pos].Tokens = append(t.Words[pos].Tokens, i)
		return
	}
	t.index[key] = len(t.Words)
	t.Words = append(t.Words, &UniqueWord{Key: key, Tokens: []int{i}})
}

// Get returns the entry for key.
func (t *WordTable) Get(key string) (*UniqueWord, bool) {
	if t.index == nil {
		t.reindex()
	}
	pos, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return t.Words[pos], true
}

// Len returns the number of distinct keys.
func (t *WordTable) Len() int {
	return len(t.Words)
}

func (t *WordTable) reindex() {
	t.index = make(map[string]int, len(t.Words))
	for i, w := range t.Words {
		t.index[w.Key] = i
	}
}

// AnnotatedDocument is a Document enriched by the annotator. It is rebuilt
// from scratch on every analysis; nothing in it is patched incrementally.
type AnnotatedDocument struct {
	Document

	Paragraphs   []Paragraph `json:"paragraphs"`
	Words        []int       `json:"words"` // token indices of word tokens, in order
	UniqueWords  *WordTable  `json:"unique_words"`
	UniqueLemmas *WordTable  `json:"unique_lemmas"`

	TotalChars        int     `json:"total_chars"`
	TotalWords        int     `json:"total_words"`
	TotalUniqueWords  int     `json:"total_unique_words"`
	TotalUniqueLemmas int     `json:"total_unique_lemmas"`
	TotalPages        float64 `json:"total_pages"`
}

// Token returns a pointer to token i.
func (d *AnnotatedDocument) Token(i int) *Token {
	return &d.Tokens[i]
}

// Table returns the lemma-keyed table when lemma is true, else the surface one.
func (d *AnnotatedDocument) Table(lemma bool) *WordTable {
	if lemma {
		return d.UniqueLemmas
	}
	return d.UniqueWords
}

// TokenAt returns the index of the token covering byte offset pos. A position
// between tokens resolves to the token whose extent (text plus trailing
// space) contains it; a position past the end resolves to the last token.
// ok is false only for an empty document.
func (d *AnnotatedDocument) TokenAt(pos int) (int, bool) {
	n := len(d.Tokens)
	if n == 0 {
		return 0, false
	}
	if pos < 0 {
		return 0, true
	}
	for i := range d.Tokens {
		if pos < d.Tokens[i].Extent() {
			return i, true
		}
	}
	return n - 1, true
}
