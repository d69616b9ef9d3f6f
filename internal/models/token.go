package models

// Feature is one morphological feature of a token, e.g. Case=Nom
type Feature struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ErrorKind classifies a grammar or spelling diagnostic on a token
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindSpelling           ErrorKind = "spelling"
	KindNonLiteral         ErrorKind = "non_literal"
	KindPluralY            ErrorKind = "suffix_plural_y"     // plural head, modifier should end in -í instead of -ý
	KindPluralIe           ErrorKind = "suffix_plural_ie"    // plural head, modifier should end in -í instead of -ie
	KindSingularI          ErrorKind = "suffix_singular_i"   // singular head, modifier should end in -ý instead of -í
	KindSingularE          ErrorKind = "suffix_singular_e"   // singular head, modifier should end in -ý instead of -é
	KindFixedPhrase        ErrorKind = "fixed_phrase"        // "všimnúť sa" instead of "všimnúť si"
	KindPrepositionS       ErrorKind = "preposition_s"       // "z" with instrumental, should be "s/so"
	KindPrepositionZ       ErrorKind = "preposition_z"       // "s" with genitive/accusative/nominative, should be "z/zo"
	KindPossessivePlural   ErrorKind = "possessive_plural"   // e.g. "svojím" where "svojim" is expected
	KindPossessiveSingular ErrorKind = "possessive_singular" // e.g. "svojim" where "svojím" is expected
)

// Token represents the smallest annotated unit of text: a word, punctuation
// or a whitespace run.
//
// Head, Dep, Lemma, POS and Morph come from the tagger and are read-only for
// the analysis packages. The annotation fields below them are owned by the
// annotator and the grammar engine.
type Token struct {
	Index  int       `json:"i"`
	Text   string    `json:"text"`
	Space  string    `json:"space,omitempty"` // trailing single space, if any
	Lower  string    `json:"lower"`
	Lemma  string    `json:"lemma"`
	POS    string    `json:"pos"`
	Dep    string    `json:"dep,omitempty"`
	Head   int       `json:"head"` // document index of the parent; a root points at itself
	Morph  []Feature `json:"morph,omitempty"`
	Offset int       `json:"offset"` // byte offset into Document.Text

	IsWord          bool      `json:"is_word"`
	WordIndex       int       `json:"word_index"` // -1 for non-word tokens
	Paragraph       int       `json:"paragraph"`
	Sentence        int       `json:"sentence"`
	HasGrammarError bool      `json:"has_grammar_error,omitempty"`
	GrammarError    ErrorKind `json:"grammar_error,omitempty"`
}

// Feat returns the value of the morphological feature key, or "" when absent.
func (t *Token) Feat(key string) string {
	for _, f := range t.Morph {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// End returns the byte offset just past the token text, excluding trailing space.
func (t *Token) End() int {
	return t.Offset + len(t.Text)
}

// Extent returns the byte offset just past the token including its trailing space.
func (t *Token) Extent() int {
	return t.Offset + len(t.Text) + len(t.Space)
}

// IsSpace reports whether the token is a whitespace run.
func (t *Token) IsSpace() bool {
	return t.POS == "SPACE"
}

// MarkError records a grammar error, replacing any earlier one.
func (t *Token) MarkError(kind ErrorKind) {
	t.HasGrammarError = true
	t.GrammarError = kind
}

// ClearError removes any recorded grammar error.
func (t *Token) ClearError() {
	t.HasGrammarError = false
	t.GrammarError = KindNone
}

// Sentence is a [Start, End) token range produced by the tagger's segmentation.
type Sentence struct {
	Start  int  `json:"start"`
	End    int  `json:"end"`
	IsMid  bool `json:"is_mid"`
	IsLong bool `json:"is_long"`
}

// Paragraph is a [Start, End) token range bounded by newline whitespace tokens.
type Paragraph struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Document is a tokenized, tagged text as produced by a tokenizer.
type Document struct {
	Text      string     `json:"text"`
	Tokens    []Token    `json:"tokens"`
	Sentences []Sentence `json:"sentences"`
}

// SentenceText returns the text covered by sentence s without its trailing space.
func (d *Document) SentenceText(s Sentence) string {
	if s.End <= s.Start {
		return ""
	}
	first := d.Tokens[s.Start]
	last := d.Tokens[s.End-1]
	return d.Text[first.Offset:last.End()]
}

// Children returns the indices of tokens whose head is i, in document order.
func (d *Document) Children(i int) []int {
	var out []int
	for j := range d.Tokens {
		if j != i && d.Tokens[j].Head == i {
			out = append(out, j)
		}
	}
	return out
}
