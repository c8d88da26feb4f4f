package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reference scores the corpus the direct way: one IDF table over query plus corpus.
func reference(v *Vectorizer, query string, corpus []string) []float64 {
	docs := [][]string{v.Tokenize(query)}
	for _, text := range corpus {
		docs = append(docs, v.Tokenize(text))
	}
	idf := inverseDocFreq(docs)
	q := weigh(termFreq(docs[0]), idf)
	out := make([]float64, len(corpus))
	for i := range corpus {
		out[i] = Cosine(q, weigh(termFreq(docs[i+1]), idf))
	}
	return out
}

func TestIndexMatchesDirectComputation(t *testing.T) {
	v := Default()
	ix := v.NewIndex(kbCorpus)
	queries := []string{
		"TRACS file submission error",
		"rent late fee payment deposit",
		"vendor",
		"",
		"nothing overlaps here",
	}

	for _, q := range queries {
		want := reference(v, q, kbCorpus)
		for _, r := range ix.Search(q, len(kbCorpus)) {
			assert.InDelta(t, want[r.Index], r.Score, 1e-12, "query %q doc %d", q, r.Index)
		}
	}
}

func TestIndexRank(t *testing.T) {
	ix := Default().NewIndex(kbCorpus)

	assert.Equal(t, 1, ix.Rank("TRACS file submission error", 2, 5))
	assert.Equal(t, 0, ix.Rank("TRACS file submission error", 2, 0))
	assert.Equal(t, 5, ix.Len())
	assert.Equal(t, kbCorpus[3], ix.Text(3))
}

func TestIndexEmpty(t *testing.T) {
	ix := Default().NewIndex(nil)

	require.Zero(t, ix.Len())
	assert.Empty(t, ix.Search("anything", 3))
}
