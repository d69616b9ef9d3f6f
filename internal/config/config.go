package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings is returned when a threshold is not a positive integer
var ErrInvalidSettings = errors.New("invalid analysis settings")

// Settings is an immutable snapshot of the analysis configuration
type Settings struct {
	RepeatedWordsUseLemma         bool `yaml:"repeated_words_use_lemma" json:"repeated_words_use_lemma"`
	RepeatedWordsMinWordLength    int  `yaml:"repeated_words_min_word_length" json:"repeated_words_min_word_length"`
	RepeatedWordsMinWordFrequency int  `yaml:"repeated_words_min_word_frequency" json:"repeated_words_min_word_frequency"`

	LongSentenceWordsMid      int `yaml:"long_sentence_words_mid" json:"long_sentence_words_mid"`
	LongSentenceWordsHigh     int `yaml:"long_sentence_words_high" json:"long_sentence_words_high"`
	LongSentenceMinWordLength int `yaml:"long_sentence_min_word_length" json:"long_sentence_min_word_length"`

	CloseWordsMinWordLength           int  `yaml:"close_words_min_word_length" json:"close_words_min_word_length"`
	CloseWordsUseLemma                bool `yaml:"close_words_use_lemma" json:"close_words_use_lemma"`
	CloseWordsMinDistanceBetweenWords int  `yaml:"close_words_min_distance_between_words" json:"close_words_min_distance_between_words"`
	CloseWordsMinFrequency            int  `yaml:"close_words_min_frequency" json:"close_words_min_frequency"`

	Features Features `yaml:"features" json:"features"`
}

// Features toggles which diagnostic families the caller runs. They never
// change the behaviour of an analyzer once it is invoked.
type Features struct {
	FrequentWords       bool `yaml:"frequent_words" json:"frequent_words"`
	LongSentences       bool `yaml:"long_sentences" json:"long_sentences"`
	MultipleSpaces      bool `yaml:"multiple_spaces" json:"multiple_spaces"`
	MultiplePunctuation bool `yaml:"multiple_punctuation" json:"multiple_punctuation"`
	TrailingSpaces      bool `yaml:"trailing_spaces" json:"trailing_spaces"`
	CloseWords          bool `yaml:"close_words" json:"close_words"`
	Spellcheck          bool `yaml:"spellcheck" json:"spellcheck"`
	PartialNLP          bool `yaml:"partial_nlp" json:"partial_nlp"`
	QuoteCorrections    bool `yaml:"quote_corrections" json:"quote_corrections"`
}

// Default returns the default settings with every feature enabled
func Default() Settings {
	return Settings{
		RepeatedWordsUseLemma:             false,
		RepeatedWordsMinWordLength:        3,
		RepeatedWordsMinWordFrequency:     10,
		LongSentenceWordsMid:              8,
		LongSentenceWordsHigh:             16,
		LongSentenceMinWordLength:         5,
		CloseWordsMinWordLength:           3,
		CloseWordsUseLemma:                false,
		CloseWordsMinDistanceBetweenWords: 100,
		CloseWordsMinFrequency:            3,
		Features: Features{
			FrequentWords:       true,
			LongSentences:       true,
			MultipleSpaces:      true,
			MultiplePunctuation: true,
			TrailingSpaces:      true,
			CloseWords:          true,
			Spellcheck:          true,
			PartialNLP:          true,
			QuoteCorrections:    true,
		},
	}
}

// Validate rejects non-positive thresholds
func (s Settings) Validate() error {
	thresholds := []struct {
		name  string
		value int
	}{
		{"repeated_words_min_word_length", s.RepeatedWordsMinWordLength},
		{"repeated_words_min_word_frequency", s.RepeatedWordsMinWordFrequency},
		{"long_sentence_words_mid", s.LongSentenceWordsMid},
		{"long_sentence_words_high", s.LongSentenceWordsHigh},
		{"long_sentence_min_word_length", s.LongSentenceMinWordLength},
		{"close_words_min_word_length", s.CloseWordsMinWordLength},
		{"close_words_min_distance_between_words", s.CloseWordsMinDistanceBetweenWords},
		{"close_words_min_frequency", s.CloseWordsMinFrequency},
	}
	for _, th := range thresholds {
		if th.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSettings, th.name, th.value)
		}
	}
	return nil
}

// Load reads settings from a YAML file on top of the defaults. Keys missing
// from the file keep their default value. An empty path returns the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
