package similarity

import (
	"math"
	"sort"
)

// Index is a tokenized corpus for repeated queries. Search scores are identical to
// FindSimilar over the same corpus: the query still counts as one extra document when
// IDF is taken, only the corpus side is computed once.
//
// An Index is immutable after construction and safe for concurrent use.
type Index struct {
	v     *Vectorizer
	texts []string
	docs  []termFreqs
	df    map[string]int
	// idf holds weights for terms absent from the query, which do not change between
	// searches because N is fixed at len(corpus)+1.
	idf map[string]float64
}

// NewIndex tokenizes corpus once.
func (v *Vectorizer) NewIndex(corpus []string) *Index {
	ix := &Index{
		v:     v,
		texts: corpus,
		docs:  make([]termFreqs, len(corpus)),
		df:    make(map[string]int),
	}
	for i, text := range corpus {
		tf := termFreq(v.tokenizer.Tokenize(text))
		ix.docs[i] = tf
		for _, term := range tf.order {
			ix.df[term]++
		}
	}
	n := ix.n()
	ix.idf = make(map[string]float64, len(ix.df))
	for term, count := range ix.df {
		ix.idf[term] = idfWeight(n, count)
	}
	return ix
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Text returns the original text of document i.
func (ix *Index) Text(i int) string {
	return ix.texts[i]
}

func (ix *Index) n() float64 {
	return float64(len(ix.docs) + 1)
}

// Search ranks the corpus against query and returns the top k, ties in corpus order.
func (ix *Index) Search(query string, k int) []Result {
	if k <= 0 || len(ix.docs) == 0 {
		return nil
	}

	qtf := termFreq(ix.v.tokenizer.Tokenize(query))
	n := ix.n()
	qidf := make(map[string]float64, len(qtf.weights))
	queryVec := make(Vector, len(qtf.weights))
	var qnorm float64
	for _, term := range qtf.order {
		qidf[term] = idfWeight(n, ix.df[term]+1)
		x := qtf.weights[term] * qidf[term]
		queryVec[term] = x
		qnorm += x * x
	}
	qnorm = math.Sqrt(qnorm)

	results := make([]Result, len(ix.docs))
	for i, doc := range ix.docs {
		var dot, norm float64
		for _, term := range doc.order {
			w := doc.weights[term]
			weight, inQuery := qidf[term]
			if !inQuery {
				weight = ix.idf[term]
			}
			x := w * weight
			norm += x * x
			if inQuery {
				dot += x * queryVec[term]
			}
		}
		score := 0.0
		if denom := qnorm * math.Sqrt(norm); denom != 0 {
			score = dot / denom
		}
		results[i] = Result{Index: i, Score: score, Text: ix.texts[i]}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Rank returns the 1-based position of document target among the top k results for
// query, or 0 when it is not among them.
func (ix *Index) Rank(query string, target, k int) int {
	for pos, r := range ix.Search(query, k) {
		if r.Index == target {
			return pos + 1
		}
	}
	return 0
}

func idfWeight(n float64, df int) float64 {
	return math.Log((n+1)/(float64(df)+1)) + 1
}
