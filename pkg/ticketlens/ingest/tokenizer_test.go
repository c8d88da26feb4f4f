package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cognicore/ticketlens/pkg/ticketlens/stoplist"
)

func TestTokenizerBasic(t *testing.T) {
	tokenizer := NewTokenizer([]string{"the", "and", "of"})

	tokens := tokenizer.Tokenize("The lease start date and the move-in of a resident")

	assert.Equal(t, []string{"lease", "start", "date", "move", "resident"}, tokens)
}

func TestTokenizerStripsPunctuationAndCase(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("TRACS file-submission ERROR: code#500!")

	assert.Equal(t, []string{"tracs", "file", "submission", "error", "code", "500"}, tokens)
}

func TestTokenizerDropsShortTokens(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("id ok GL 401k ab abc")

	assert.Equal(t, []string{"401k", "abc"}, tokens)
}

func TestTokenizerNonASCIIIsSeparator(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	assert.Equal(t, []string{"caf", "menu"}, tokenizer.Tokenize("café menu"))
}

func TestTokenizerEmpty(t *testing.T) {
	tokenizer := NewTokenizer(stoplist.DefaultTerms())

	assert.Empty(t, tokenizer.Tokenize(""))
	assert.Empty(t, tokenizer.Tokenize("   \t\n"))
	assert.Empty(t, tokenizer.Tokenize("the and because"))
}

func TestAddRemoveStopword(t *testing.T) {
	tokenizer := NewTokenizer([]string{"the"})

	assert.Equal(t, []string{"cat"}, tokenizer.Tokenize("the cat"))

	tokenizer.RemoveStopword("the")
	assert.Equal(t, []string{"the", "cat"}, tokenizer.Tokenize("the cat"))

	tokenizer.AddStopword("CAT")
	assert.Equal(t, []string{"the"}, tokenizer.Tokenize("the cat"))
}

func TestSetMinLength(t *testing.T) {
	tokenizer := NewTokenizer(nil)
	tokenizer.SetMinLength(1)

	assert.Equal(t, []string{"a", "id"}, tokenizer.Tokenize("a id"))

	tokenizer.SetMinLength(0)
	assert.Equal(t, []string{"a"}, tokenizer.Tokenize("a"))
}
