// Package search answers free-text questions against the knowledge base and the
// detected clusters.
//
// A Catalog tokenizes its corpora once; every query still takes IDF over corpus plus
// query, so relevance values match a one-shot similarity.FindSimilar call.
package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/cognicore/ticketlens/pkg/ticketlens/cluster"
	"github.com/cognicore/ticketlens/pkg/ticketlens/ingest"
	"github.com/cognicore/ticketlens/pkg/ticketlens/internalerr"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
	"github.com/cognicore/ticketlens/pkg/ticketlens/similarity"
)

// Options holds result limits and relevance cutoffs. Cutoffs are raw cosine scores;
// Relevance values in results are percentages. Zero or negative fields take the
// default, so a configured cutoff must be positive.
type Options struct {
	KBLimit           int     `yaml:"kb_limit"`
	ClusterLimit      int     `yaml:"cluster_limit"`
	KBThreshold       float64 `yaml:"kb_threshold"`
	ClusterThreshold  float64 `yaml:"cluster_threshold"`
	CoverageRelevance float64 `yaml:"coverage_relevance"`

	CopilotKBLimit      int     `yaml:"copilot_kb_limit"`
	CopilotClusterLimit int     `yaml:"copilot_cluster_limit"`
	CopilotThreshold    float64 `yaml:"copilot_threshold"`
	HighConfidence      float64 `yaml:"high_confidence"`
	MediumConfidence    float64 `yaml:"medium_confidence"`
	ExcerptLength       int     `yaml:"excerpt_length"`
	ProductName         string  `yaml:"product_name"`

	TriageKeywords         int     `yaml:"triage_keywords"`
	TriageSubjectPool      int     `yaml:"triage_subject_pool"`
	TriageLimit            int     `yaml:"triage_limit"`
	TriageClusterThreshold float64 `yaml:"triage_cluster_threshold"`
	TriageKBThreshold      float64 `yaml:"triage_kb_threshold"`
	GapRelevance           float64 `yaml:"gap_relevance"`
}

// DefaultOptions returns the standard limits and cutoffs.
func DefaultOptions() Options {
	return Options{
		KBLimit:           5,
		ClusterLimit:      3,
		KBThreshold:       0.05,
		ClusterThreshold:  0.05,
		CoverageRelevance: 15,

		CopilotKBLimit:      3,
		CopilotClusterLimit: 2,
		CopilotThreshold:    0.04,
		HighConfidence:      40,
		MediumConfidence:    15,
		ExcerptLength:       300,
		ProductName:         "PropertySuite",

		TriageKeywords:         6,
		TriageSubjectPool:      200,
		TriageLimit:            3,
		TriageClusterThreshold: 0.03,
		TriageKBThreshold:      0.05,
		GapRelevance:           20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setFloat := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	setInt(&o.KBLimit, d.KBLimit)
	setInt(&o.ClusterLimit, d.ClusterLimit)
	setFloat(&o.KBThreshold, d.KBThreshold)
	setFloat(&o.ClusterThreshold, d.ClusterThreshold)
	setFloat(&o.CoverageRelevance, d.CoverageRelevance)
	setInt(&o.CopilotKBLimit, d.CopilotKBLimit)
	setInt(&o.CopilotClusterLimit, d.CopilotClusterLimit)
	setFloat(&o.CopilotThreshold, d.CopilotThreshold)
	setFloat(&o.HighConfidence, d.HighConfidence)
	setFloat(&o.MediumConfidence, d.MediumConfidence)
	setInt(&o.ExcerptLength, d.ExcerptLength)
	setInt(&o.TriageKeywords, d.TriageKeywords)
	setInt(&o.TriageSubjectPool, d.TriageSubjectPool)
	setInt(&o.TriageLimit, d.TriageLimit)
	setFloat(&o.TriageClusterThreshold, d.TriageClusterThreshold)
	setFloat(&o.TriageKBThreshold, d.TriageKBThreshold)
	setFloat(&o.GapRelevance, d.GapRelevance)
	if o.ProductName == "" {
		o.ProductName = d.ProductName
	}
	return o
}

// Catalog is the searchable knowledge base plus clusters.
type Catalog struct {
	v         *similarity.Vectorizer
	opts      Options
	articles  []model.KnowledgeArticle
	clusters  []cluster.Cluster
	kbFull    *similarity.Index
	kbShort   *similarity.Index
	clusterIx *similarity.Index
}

// NewCatalog indexes articles (title, plain body, category), article headlines
// (title, category) and clusters.
func NewCatalog(v *similarity.Vectorizer, articles []model.KnowledgeArticle, clusters []cluster.Cluster, opts Options) *Catalog {
	full := make([]string, len(articles))
	short := make([]string, len(articles))
	for i, a := range articles {
		full[i] = ingest.ArticleText(a)
		short[i] = ingest.ArticleHeadline(a)
	}
	clusterTexts := make([]string, len(clusters))
	for i, c := range clusters {
		clusterTexts[i] = c.SearchText()
	}
	return &Catalog{
		v:         v,
		opts:      opts.withDefaults(),
		articles:  articles,
		clusters:  clusters,
		kbFull:    v.NewIndex(full),
		kbShort:   v.NewIndex(short),
		clusterIx: v.NewIndex(clusterTexts),
	}
}

// ArticleMatch is a KB article that cleared the relevance cutoff.
type ArticleMatch struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Category  string  `json:"category,omitempty"`
	Excerpt   string  `json:"excerpt,omitempty"`
	Relevance float64 `json:"relevance"`
}

// ClusterMatch is a cluster that cleared the relevance cutoff.
type ClusterMatch struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Category  string           `json:"category,omitempty"`
	Severity  cluster.Severity `json:"severity"`
	Relevance float64          `json:"relevance"`
}

// Result is the answer to a KB search.
type Result struct {
	Query            string         `json:"query"`
	Articles         []ArticleMatch `json:"articles"`
	Clusters         []ClusterMatch `json:"clusters"`
	HasCoverage      bool           `json:"has_coverage"`
	SearchedArticles int            `json:"searched_articles"`
	SearchedClusters int            `json:"searched_clusters"`
}

// Search finds the best KB articles and clusters for query. Coverage means the top
// article's relevance exceeds CoverageRelevance.
func (c *Catalog) Search(query string) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, fmt.Errorf("search query: %w", internalerr.ErrInvalidInput)
	}
	res := Result{
		Query:            query,
		Articles:         c.matchArticles(c.kbFull, query, c.opts.KBLimit, c.opts.KBThreshold, false),
		Clusters:         c.matchClusters(query, c.opts.ClusterLimit, c.opts.ClusterThreshold),
		SearchedArticles: len(c.articles),
		SearchedClusters: len(c.clusters),
	}
	res.HasCoverage = len(res.Articles) > 0 && res.Articles[0].Relevance > c.opts.CoverageRelevance
	return res, nil
}

func (c *Catalog) matchArticles(ix *similarity.Index, query string, limit int, threshold float64, excerpt bool) []ArticleMatch {
	out := []ArticleMatch{}
	for _, r := range ix.Search(query, limit) {
		if r.Score <= threshold {
			continue
		}
		a := c.articles[r.Index]
		m := ArticleMatch{
			ID:        a.ID,
			Title:     a.Title,
			Category:  a.Category,
			Relevance: relevance(r.Score),
		}
		if excerpt {
			m.Excerpt = truncate(ingest.PlainText(a.Body), c.opts.ExcerptLength)
		}
		out = append(out, m)
	}
	return out
}

func (c *Catalog) matchClusters(query string, limit int, threshold float64) []ClusterMatch {
	out := []ClusterMatch{}
	for _, r := range c.clusterIx.Search(query, limit) {
		if r.Score <= threshold {
			continue
		}
		cl := c.clusters[r.Index]
		out = append(out, ClusterMatch{
			ID:        cl.ID,
			Name:      cl.Name,
			Category:  cl.Category,
			Severity:  cl.Severity,
			Relevance: relevance(r.Score),
		})
	}
	return out
}

// relevance converts a cosine score to a percentage with one decimal.
func relevance(score float64) float64 {
	return math.Round(score*1000) / 10
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
