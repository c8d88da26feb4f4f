package ingest

import (
	"strings"
)

// DefaultMinLength is the shortest token kept.
const DefaultMinLength = 3

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	stopwords map[string]struct{}
	minLength int
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops, minLength: DefaultMinLength}
}

// SetMinLength changes the minimum kept token length. Values below 1 are clamped to 1.
func (t *Tokenizer) SetMinLength(n int) {
	if n < 1 {
		n = 1
	}
	t.minLength = n
}

// Tokenize lowercases text, treats every byte outside [a-z0-9] as a separator and
// drops short tokens and stopwords.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}

func (t *Tokenizer) processToken(word string) string {
	if len(word) < t.minLength {
		return ""
	}
	if t.isStopword(word) {
		return ""
	}
	return word
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	t.stopwords[strings.ToLower(word)] = struct{}{}
}

// RemoveStopword removes a word from the stopword list
func (t *Tokenizer) RemoveStopword(word string) {
	delete(t.stopwords, strings.ToLower(word))
}
