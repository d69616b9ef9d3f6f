package grammar

import (
	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/nlp"
)

// predicate selects tokens for one side of a dependency pattern
type predicate func(t *models.Token) bool

// edge is a matched (left, right) pair of token indices
type edge struct {
	left, right int
}

// tree indexes the dependency structure of a document. The children index
// is built once so that pattern passes do not rescan the token list.
type tree struct {
	doc      *models.AnnotatedDocument
	children [][]int
}

func newTree(doc *models.AnnotatedDocument) *tree {
	t := &tree{doc: doc, children: make([][]int, len(doc.Tokens))}
	for i := range doc.Tokens {
		h := doc.Tokens[i].Head
		if h == i || h < 0 || h >= len(doc.Tokens) {
			continue
		}
		t.children[h] = append(t.children[h], i)
	}
	return t
}

func (t *tree) token(i int) *models.Token {
	return &t.doc.Tokens[i]
}

// pairs returns every dependency edge whose ends satisfy left and right, in
// either direction: left may govern right or depend on it. Edges are
// returned in document order of the dependent.
func (t *tree) pairs(left, right predicate) []edge {
	var out []edge
	for d := range t.doc.Tokens {
		h := t.doc.Tokens[d].Head
		if h == d || h < 0 || h >= len(t.doc.Tokens) {
			continue
		}
		head, dep := t.token(h), t.token(d)
		if left(head) && right(dep) {
			out = append(out, edge{left: h, right: d})
		}
		if left(dep) && right(head) {
			out = append(out, edge{left: d, right: h})
		}
	}
	return out
}

// childrenWhere returns the children of i that satisfy p
func (t *tree) childrenWhere(i int, p predicate) []int {
	var out []int
	for _, c := range t.children[i] {
		if p(t.token(c)) {
			out = append(out, c)
		}
	}
	return out
}

func hasPOS(tags ...string) predicate {
	return func(t *models.Token) bool {
		for _, tag := range tags {
			if t.POS == tag {
				return true
			}
		}
		return false
	}
}

func hasLemma(lemmas ...string) predicate {
	return func(t *models.Token) bool {
		lemma := nlp.Lower(t.Lemma)
		for _, l := range lemmas {
			if lemma == l {
				return true
			}
		}
		return false
	}
}

func hasDep(dep string) predicate {
	return func(t *models.Token) bool {
		return t.Dep == dep
	}
}

func and(ps ...predicate) predicate {
	return func(t *models.Token) bool {
		for _, p := range ps {
			if !p(t) {
				return false
			}
		}
		return true
	}
}

func featIn(t *models.Token, key string, values ...string) bool {
	v := t.Feat(key)
	for _, want := range values {
		if v == want {
			return true
		}
	}
	return false
}
