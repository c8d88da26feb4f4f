// Package similarity implements the TF-IDF vector space used for KB search, cluster
// matching and keyword extraction.
//
// Every call rebuilds its own IDF table over the corpus plus the query, so a Vectorizer
// carries no state between calls and is safe for concurrent use. The query counts as
// one more document when document frequencies are taken; the relevance cutoffs used by
// callers (0.03 to 0.05) are calibrated against that choice.
package similarity

import (
	"math"
	"sort"

	"github.com/cognicore/ticketlens/pkg/ticketlens/ingest"
	"github.com/cognicore/ticketlens/pkg/ticketlens/stoplist"
)

// Vector is a sparse term-weight map.
type Vector map[string]float64

// Result is one ranked corpus document.
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// Keyword is a term with its TF-IDF weight.
type Keyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Vectorizer turns text into TF-IDF vectors.
type Vectorizer struct {
	tokenizer *ingest.Tokenizer
}

// New creates a vectorizer using the given tokenizer. A nil tokenizer falls back to
// the default stop list.
func New(tokenizer *ingest.Tokenizer) *Vectorizer {
	if tokenizer == nil {
		tokenizer = ingest.NewTokenizer(stoplist.DefaultTerms())
	}
	return &Vectorizer{tokenizer: tokenizer}
}

// Default returns a vectorizer with the built-in stop list.
func Default() *Vectorizer {
	return New(nil)
}

// Tokenize exposes the vectorizer's tokenizer.
func (v *Vectorizer) Tokenize(text string) []string {
	return v.tokenizer.Tokenize(text)
}

// FindSimilar ranks corpus against query by cosine similarity and returns the top k.
// Results keep their corpus index; ties keep corpus order.
func (v *Vectorizer) FindSimilar(query string, corpus []string, k int) []Result {
	if k <= 0 || len(corpus) == 0 {
		return nil
	}
	return v.NewIndex(corpus).Search(query, k)
}

// Matrix returns pairwise cosine similarity for texts. The diagonal is 1.
func (v *Vectorizer) Matrix(texts []string) [][]float64 {
	docs := make([][]string, len(texts))
	for i, text := range texts {
		docs[i] = v.tokenizer.Tokenize(text)
	}
	idf := inverseDocFreq(docs)
	vecs := make([]Vector, len(docs))
	for i, doc := range docs {
		vecs[i] = weigh(termFreq(doc), idf)
	}

	out := make([][]float64, len(vecs))
	for i := range vecs {
		out[i] = make([]float64, len(vecs))
		for j := range vecs {
			if i == j {
				out[i][j] = 1
				continue
			}
			out[i][j] = Cosine(vecs[i], vecs[j])
		}
	}
	return out
}

// Keywords returns the k highest-weighted terms of text, with IDF taken over text plus
// the reference corpus. Scores are rounded to four decimals.
func (v *Vectorizer) Keywords(text string, corpus []string, k int) []Keyword {
	tokens := v.tokenizer.Tokenize(text)
	if k <= 0 || len(tokens) == 0 {
		return nil
	}
	docs := make([][]string, 0, len(corpus)+1)
	docs = append(docs, tokens)
	for _, doc := range corpus {
		docs = append(docs, v.tokenizer.Tokenize(doc))
	}
	idf := inverseDocFreq(docs)
	tf := termFreq(tokens)

	out := make([]Keyword, 0, len(tf.order))
	for _, term := range tf.order {
		out = append(out, Keyword{Term: term, Score: tf.weights[term] * idf[term]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].Score = math.Round(out[i].Score*1e4) / 1e4
	}
	return out
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either vector has zero norm. Terms are
// summed in sorted order so equal inputs always give bit-identical scores.
func Cosine(a, b Vector) float64 {
	var dot, magA, magB float64
	for _, term := range a.terms() {
		val := a[term]
		dot += val * b[term]
		magA += val * val
	}
	for _, term := range b.terms() {
		val := b[term]
		magB += val * val
	}
	denom := math.Sqrt(magA) * math.Sqrt(magB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func (v Vector) terms() []string {
	out := make([]string, 0, len(v))
	for term := range v {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// termFreqs keeps first-occurrence order so ranking ties are deterministic.
type termFreqs struct {
	order   []string
	weights map[string]float64
}

// termFreq applies augmented frequency: 0.5 + 0.5*count/maxCount.
func termFreq(tokens []string) termFreqs {
	counts := make(map[string]int, len(tokens))
	var order []string
	maxCount := 1
	for _, tok := range tokens {
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
		if counts[tok] > maxCount {
			maxCount = counts[tok]
		}
	}
	weights := make(map[string]float64, len(counts))
	for term, count := range counts {
		weights[term] = 0.5 + 0.5*(float64(count)/float64(maxCount))
	}
	return termFreqs{order: order, weights: weights}
}

// inverseDocFreq computes ln((N+1)/(df+1)) + 1 over docs.
func inverseDocFreq(docs [][]string) map[string]float64 {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, tok := range doc {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = idfWeight(n, count)
	}
	return idf
}

func weigh(tf termFreqs, idf map[string]float64) Vector {
	vec := make(Vector, len(tf.weights))
	for term, w := range tf.weights {
		weight, ok := idf[term]
		if !ok {
			weight = 1
		}
		vec[term] = w * weight
	}
	return vec
}
