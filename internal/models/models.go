package models

import (
	"time"

	"github.com/zombar/stylecheck/internal/config"
)

// Document statuses
const (
	StatusQueued   = "queued"
	StatusAnalyzed = "analyzed"
	StatusFailed   = "failed"
)

// StoredDocument represents a persisted document with its latest analysis
type StoredDocument struct {
	ID        string             `json:"id"`
	Text      string             `json:"text"`
	Settings  config.Settings    `json:"settings"`
	Status    string             `json:"status"`
	LastError string             `json:"last_error,omitempty"`
	Annotated *AnnotatedDocument `json:"-"`
	Report    *Report            `json:"report,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Report contains every diagnostic the presentation layer renders
type Report struct {
	// Basic statistics
	CharacterCount   int     `json:"character_count"`
	WordCount        int     `json:"word_count"`
	UniqueWords      int     `json:"unique_words"`
	UniqueLemmas     int     `json:"unique_lemmas"`
	SentenceCount    int     `json:"sentence_count"`
	ParagraphCount   int     `json:"paragraph_count"`
	Pages            float64 `json:"pages"`
	ReadabilityScore float64 `json:"readability_score"`

	FrequentWords []WordFrequency  `json:"frequent_words,omitempty"`
	CloseWords    []CloseWordGroup `json:"close_words,omitempty"`
	LongSentences []SentenceFlag   `json:"long_sentences,omitempty"`
	GrammarErrors []GrammarIssue   `json:"grammar_errors,omitempty"`
	TextIssues    []TextIssue      `json:"text_issues,omitempty"`

	// Partial is true when the document was produced by partial re-analysis
	Partial bool `json:"partial"`
}

// WordFrequency represents a word and its frequency
type WordFrequency struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// CloseWordGroup represents one repeated key split into proximity clusters
type CloseWordGroup struct {
	Key        string       `json:"key"`
	Count      int          `json:"count"`
	Partitions [][]TokenRef `json:"partitions"`
}

// TokenRef locates a token in the analyzed text
type TokenRef struct {
	Index     int    `json:"index"`
	WordIndex int    `json:"word_index"`
	Offset    int    `json:"offset"`
	Text      string `json:"text"`
}

// SentenceFlag marks a sentence as mid-length or long
type SentenceFlag struct {
	Start  int    `json:"start"` // byte offset
	End    int    `json:"end"`
	Length string `json:"length"` // mid, long
}

// GrammarIssue is a token flagged by the grammar engine
type GrammarIssue struct {
	TokenRef
	Kind        ErrorKind `json:"kind"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// TextIssueKind classifies a surface-level text issue
type TextIssueKind string

const (
	IssueMultipleSpaces      TextIssueKind = "multiple_spaces"
	IssueMultiplePunctuation TextIssueKind = "multiple_punctuation"
	IssueTrailingSpaces      TextIssueKind = "trailing_spaces"
	IssueQuotes              TextIssueKind = "quotes"
)

// TextIssue is a surface-level issue found directly in the raw text
type TextIssue struct {
	Kind        TextIssueKind `json:"kind"`
	Offset      int           `json:"offset"` // byte offset
	Length      int           `json:"length"`
	Replacement string        `json:"replacement"`
}

// ThesaurusEntry is a thesaurus lookup result
type ThesaurusEntry struct {
	Heading  string   `json:"heading"`
	Synonyms []string `json:"synonyms"`
}
