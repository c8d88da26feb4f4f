// Package quality scores knowledge articles and derives decay alerts.
package quality

import (
	"encoding/binary"
	"math"
	"sort"
	"time"

	"github.com/zeebo/blake3"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

// Score is the quality breakdown for one article. All sub-scores are in [0,100]
// and rounded to one decimal.
type Score struct {
	ArticleID        string  `json:"kb_article_id"`
	Title            string  `json:"title"`
	Category         string  `json:"category"`
	SourceType       string  `json:"source_type"`
	AccuracyScore    float64 `json:"accuracy_score"`
	FreshnessScore   float64 `json:"freshness_score"`
	UsageScore       float64 `json:"usage_score"`
	ConfusionScore   float64 `json:"confusion_score"`
	OverallScore     float64 `json:"overall_score"`
	TicketUsageCount int     `json:"ticket_usage_count"`
}

// Overall combines sub-scores: 0.4 accuracy + 0.25 freshness + 0.2 usage + 0.15 clarity,
// where clarity is 100 minus confusion.
func Overall(accuracy, freshness, usage, confusion float64) float64 {
	return 0.4*accuracy + 0.25*freshness + 0.2*usage + 0.15*(100-confusion)
}

// MaxConfusion bounds the confusion sub-score. Values from a ConfusionSource are
// clamped to [0, MaxConfusion].
const MaxConfusion = 20.0

// ConfusionSource supplies the confusion sub-score, in [0,20), for an article.
type ConfusionSource interface {
	Confusion(articleID string) float64
}

// HashConfusion is a synthetic stand-in for a measured confusion signal: it maps the
// article id to a stable value in [0,20). The same id yields the same value on every
// run and platform.
type HashConfusion struct{}

// Confusion implements ConfusionSource.
func (HashConfusion) Confusion(articleID string) float64 {
	return UnitHash(articleID) * MaxConfusion
}

// UnitHash maps s to [0,1) using the first 53 bits of its BLAKE3 digest.
func UnitHash(s string) float64 {
	sum := blake3.Sum256([]byte(s))
	return float64(binary.BigEndian.Uint64(sum[:8])>>11) / (1 << 53)
}

// Options tunes the scorer.
type Options struct {
	HalfLifeDays float64 `yaml:"half_life_days"`
	MaxArticles  int     `yaml:"max_articles"`
	SeedBase     float64 `yaml:"seed_accuracy_base"`
	SynthBase    float64 `yaml:"synth_accuracy_base"`
	LineageBonus float64 `yaml:"lineage_bonus"`
	// DefaultUpdatedAt stands in for articles without an update timestamp.
	DefaultUpdatedAt time.Time `yaml:"-"`

	Now       func() time.Time `yaml:"-"`
	Confusion ConfusionSource  `yaml:"-"`
}

// DefaultOptions returns the standard scoring parameters.
func DefaultOptions() Options {
	return Options{
		HalfLifeDays:     90,
		MaxArticles:      500,
		SeedBase:         75,
		SynthBase:        90,
		LineageBonus:     2,
		DefaultUpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HalfLifeDays <= 0 {
		o.HalfLifeDays = d.HalfLifeDays
	}
	if o.MaxArticles <= 0 {
		o.MaxArticles = d.MaxArticles
	}
	if o.SeedBase <= 0 {
		o.SeedBase = d.SeedBase
	}
	if o.SynthBase <= 0 {
		o.SynthBase = d.SynthBase
	}
	if o.LineageBonus <= 0 {
		o.LineageBonus = d.LineageBonus
	}
	if o.DefaultUpdatedAt.IsZero() {
		o.DefaultUpdatedAt = d.DefaultUpdatedAt
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Confusion == nil {
		o.Confusion = HashConfusion{}
	}
	return o
}

// Freshness decays from 100 with the given half-life in days, clamped to [0,100].
func Freshness(ageDays, halfLifeDays float64) float64 {
	f := 100 * math.Exp(-math.Ln2*ageDays/halfLifeDays)
	return clamp(f, 0, 100)
}

// ScoreArticles scores the first MaxArticles articles that have both an id and a title,
// sorted by descending overall score. Usage counts both direct and generated KB links
// on tickets; accuracy rewards lineage evidence.
func ScoreArticles(articles []model.KnowledgeArticle, tickets []model.Ticket, lineage []model.KBLineage, opts Options) []Score {
	opts = opts.withDefaults()
	now := opts.Now()

	usage := make(map[string]int)
	for _, t := range tickets {
		if t.KBArticleID != "" {
			usage[t.KBArticleID]++
		}
		if t.GeneratedKBArticleID != "" {
			usage[t.GeneratedKBArticleID]++
		}
	}
	maxUsage := 1
	for _, n := range usage {
		if n > maxUsage {
			maxUsage = n
		}
	}

	evidence := make(map[string]int)
	for _, l := range lineage {
		evidence[l.ArticleID]++
	}

	var scores []Score
	for _, kb := range articles {
		if kb.ID == "" || kb.Title == "" {
			continue
		}
		if len(scores) >= opts.MaxArticles {
			break
		}

		updated := kb.UpdatedAt
		if updated.IsZero() {
			updated = opts.DefaultUpdatedAt
		}
		ageDays := now.Sub(updated).Hours() / 24

		base := opts.SynthBase
		if kb.Seeded() {
			base = opts.SeedBase
		}

		s := Score{
			ArticleID:        kb.ID,
			Title:            kb.Title,
			Category:         orDefault(kb.Category, model.Uncategorized),
			SourceType:       orDefault(kb.SourceType, "Unknown"),
			AccuracyScore:    round1(math.Min(100, base+float64(evidence[kb.ID])*opts.LineageBonus)),
			FreshnessScore:   round1(Freshness(ageDays, opts.HalfLifeDays)),
			UsageScore:       round1(100 * float64(usage[kb.ID]) / float64(maxUsage)),
			ConfusionScore:   round1(clamp(opts.Confusion.Confusion(kb.ID), 0, MaxConfusion)),
			TicketUsageCount: usage[kb.ID],
		}
		s.OverallScore = round1(Overall(s.AccuracyScore, s.FreshnessScore, s.UsageScore, s.ConfusionScore))
		scores = append(scores, s)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].OverallScore > scores[j].OverallScore
	})
	return scores
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
