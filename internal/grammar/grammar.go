// Package grammar flags spelling errors and common Slovak grammar mistakes
// on an annotated document.
//
// The checks are heuristics over the tagger's dependency tree and
// morphology. They flag, they never fix; each token carries at most one
// error kind and a later check overwrites an earlier one. The checks run in
// this order:
//
//  1. dictionary lookup and non-literary words
//  2. adjective and pronoun suffix agreement with masculine heads
//  3. the fixed phrase "všimnúť si"
//  4. the choice between the prepositions "s" and "z"
//  5. the case of possessive pronouns ("svojím" / "svojim")
package grammar

import (
	"strings"
	"unicode"

	"github.com/zombar/stylecheck/internal/models"
)

// Dictionary answers whether a word is spelled correctly
type Dictionary interface {
	IsCorrect(word string) bool
}

// Stats summarizes one Spellcheck run
type Stats struct {
	Lookups int                      // dictionary queries issued
	Errors  map[models.ErrorKind]int // flagged tokens by kind
}

// Spellcheck clears previous flags and runs every check on doc, marking
// tokens in place. A nil dictionary skips the dictionary lookup only.
func Spellcheck(doc *models.AnnotatedDocument, dict Dictionary) Stats {
	stats := Stats{Errors: map[models.ErrorKind]int{}}
	for i := range doc.Tokens {
		doc.Tokens[i].ClearError()
	}

	t := newTree(doc)
	if dict != nil {
		stats.Lookups = checkDictionary(doc, dict)
	}
	checkNonLiteral(doc)
	checkSuffixAgreement(t)
	checkFixedPhrase(t)
	checkAdpositions(t)
	checkPossessives(t)

	for i := range doc.Tokens {
		if doc.Tokens[i].HasGrammarError {
			stats.Errors[doc.Tokens[i].GrammarError]++
		}
	}
	return stats
}

// checkDictionary queries the dictionary once per distinct spelling of each
// unique word and propagates the answer to all its occurrences.
func checkDictionary(doc *models.AnnotatedDocument, dict Dictionary) int {
	lookups := 0
	for _, w := range doc.UniqueWords.Words {
		correct := map[string]bool{}
		for _, ti := range w.Tokens {
			tok := &doc.Tokens[ti]
			ok, seen := correct[tok.Text]
			if !seen {
				if isNumber(tok.Text) {
					ok = true
				} else {
					ok = dict.IsCorrect(tok.Text)
					lookups++
				}
				correct[tok.Text] = ok
			}
			if !ok {
				tok.MarkError(models.KindSpelling)
			}
		}
	}
	return lookups
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func checkNonLiteral(doc *models.AnnotatedDocument) {
	for i := range doc.Tokens {
		tok := &doc.Tokens[i]
		if tok.IsWord && nonLiteral[tok.Lower] {
			tok.MarkError(models.KindNonLiteral)
		}
	}
}

var (
	isTarget   = hasPOS("NOUN", "DET", "PRON")
	isModifier = hasPOS("ADJ", "DET", "PRON")
)

// checkSuffixAgreement finds adjectives, determiners and pronouns agreeing
// with a masculine nominative head and checks the ending for the head's
// number: plural animate heads take -í ("pekní chlapci", "tí chlapci"),
// singular heads take -ý ("pekný chlapec"). After a long syllable the
// endings shorten to -i and -y ("múdri chlapci", "múdry chlapec").
func checkSuffixAgreement(t *tree) {
	for _, e := range t.pairs(isTarget, isModifier) {
		target, modifier := t.token(e.left), t.token(e.right)
		if !target.IsWord || !modifier.IsWord {
			continue
		}
		if suffixExceptions[target.Lower] || suffixExceptions[modifier.Lower] {
			continue
		}
		if target.Feat("Case") != "Nom" {
			continue
		}
		if target.POS == "NOUN" && target.Feat("Gender") != "Masc" {
			continue
		}
		if g := target.Feat("Gender"); g != "" && g != "Masc" {
			continue
		}

		modifiers := []int{e.right}
		modifiers = append(modifiers, t.childrenWhere(e.right, hasDep("conj"))...)
		modifiers = append(modifiers, t.childrenWhere(e.right, hasPOS("DET"))...)

		number := target.Feat("Number")
		animate := target.Feat("Animacy") != "Inan"
		for _, mi := range modifiers {
			m := t.token(mi)
			if !m.IsWord || suffixExceptions[m.Lower] {
				continue
			}
			positive := m.Feat("Degree") == "Pos"
			switch {
			case number == "Plur" && animate && hasAnySuffix(m.Lower, "ý", "y"):
				m.MarkError(models.KindPluralY)
			case number == "Plur" && animate && strings.HasSuffix(m.Lower, "ie"):
				m.MarkError(models.KindPluralIe)
			case number == "Sing" && positive && hasAnySuffix(m.Lower, "í", "i"):
				m.MarkError(models.KindSingularI)
			case number == "Sing" && positive && strings.HasSuffix(m.Lower, "é"):
				m.MarkError(models.KindSingularE)
			}
		}
	}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// checkFixedPhrase flags "všimnúť sa", which should be "všimnúť si"
func checkFixedPhrase(t *tree) {
	verb := and(hasPOS("VERB"), hasLemma("všimnúť"))
	pronoun := and(hasPOS("PRON"), hasLemma("sa"))
	for _, e := range t.pairs(verb, pronoun) {
		if p := t.token(e.right); p.Lower == "sa" {
			p.MarkError(models.KindFixedPhrase)
		}
	}
}

// checkAdpositions flags "z" governing an instrumental noun (should be
// "s"/"so") and "s" governing a genitive, accusative or nominative noun
// (should be "z"/"zo").
func checkAdpositions(t *tree) {
	noun := hasPOS("NOUN")

	for _, e := range t.pairs(and(hasPOS("ADP"), hasLemma("z")), noun) {
		if t.token(e.right).Feat("Case") == "Ins" {
			t.token(e.left).MarkError(models.KindPrepositionS)
		}
	}
	for _, e := range t.pairs(and(hasPOS("ADP"), hasLemma("s")), noun) {
		if featIn(t.token(e.right), "Case", "Gen", "Acc", "Nom") {
			t.token(e.left).MarkError(models.KindPrepositionZ)
		}
	}
}

// checkPossessives compares the case of a possessive pronoun with its noun.
// An instrumental pronoun next to a dative or plural noun should use the
// plural form ("svojim"); a dative pronoun next to an instrumental noun
// should use the singular one ("svojím"). When the noun gives no verdict the
// preposition attached to it is consulted instead, which catches nouns the
// tagger got wrong.
func checkPossessives(t *tree) {
	pronoun := and(hasPOS("DET", "PRON"), hasLemma(possessiveLemmas...))
	for _, e := range t.pairs(pronoun, hasPOS("NOUN")) {
		p := t.token(e.left)
		if possessiveMismatch(p, t.token(e.right)) {
			continue
		}
		for _, c := range t.childrenWhere(e.right, hasDep("case")) {
			if possessiveMismatch(p, t.token(c)) {
				break
			}
		}
	}
}

// possessiveMismatch flags p when its case disagrees with the morphology of
// ref, reporting whether it did.
func possessiveMismatch(p, ref *models.Token) bool {
	switch {
	case p.Feat("Case") == "Ins" && (ref.Feat("Case") == "Dat" || ref.Feat("Number") == "Plur"):
		p.MarkError(models.KindPossessivePlural)
		return true
	case p.Feat("Case") == "Dat" && ref.Feat("Case") == "Ins":
		p.MarkError(models.KindPossessiveSingular)
		return true
	}
	return false
}
