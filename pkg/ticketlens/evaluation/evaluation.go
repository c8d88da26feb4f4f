// Package evaluation measures how well the vectorizer retrieves the labelled answer
// for each benchmark question.
package evaluation

import (
	"context"
	"math"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/ticketlens/pkg/ticketlens/ingest"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
	"github.com/cognicore/ticketlens/pkg/ticketlens/similarity"
)

// Count is a label with its frequency.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Metrics are retrieval scores over a set of evaluated questions. Hit rates are
// percentages rounded to one decimal; MRR is in [0,1] rounded to three decimals.
type Metrics struct {
	Evaluated int     `json:"evaluated"`
	HitAt1    float64 `json:"hit_at_1"`
	HitAt3    float64 `json:"hit_at_3"`
	HitAt5    float64 `json:"hit_at_5"`
	MRR       float64 `json:"mrr"`
}

// Report is the full evaluation result.
type Report struct {
	TotalQuestions int                `json:"total_questions"`
	CoverageRate   int                `json:"coverage_rate"`
	Overall        Metrics            `json:"overall"`
	ByAnswerType   map[string]Metrics `json:"by_answer_type"`
	DifficultyDist map[string]int     `json:"difficulty_dist"`
	AnswerTypeDist map[string]int     `json:"answer_type_dist"`
	CategoryDist   []Count            `json:"category_dist"`
}

// Input is the benchmark and the two answer corpora.
type Input struct {
	Questions []model.Question
	Articles  []model.KnowledgeArticle
	Scripts   []model.Script
}

// Options tunes the run.
type Options struct {
	K             int `yaml:"k"`
	TopCategories int `yaml:"top_categories"`
	Workers       int `yaml:"workers"`
}

// DefaultOptions ranks the top five and reports fifteen categories.
func DefaultOptions() Options {
	return Options{K: 5, TopCategories: 15, Workers: runtime.GOMAXPROCS(0)}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.K < 5 {
		o.K = d.K
	}
	if o.TopCategories <= 0 {
		o.TopCategories = d.TopCategories
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	return o
}

type target struct {
	index *similarity.Index
	pos   int
}

// Run ranks each answerable question's corpus and records where the labelled target
// lands. Questions whose target id is unknown count toward the distributions but not
// toward retrieval metrics.
func Run(ctx context.Context, v *similarity.Vectorizer, in Input, opts Options) (Report, error) {
	opts = opts.withDefaults()

	kbTexts := make([]string, len(in.Articles))
	kbPos := make(map[string]int, len(in.Articles))
	for i, a := range in.Articles {
		kbTexts[i] = ingest.ArticleText(a)
		if _, dup := kbPos[a.ID]; !dup {
			kbPos[a.ID] = i
		}
	}
	scriptTexts := make([]string, len(in.Scripts))
	scriptPos := make(map[string]int, len(in.Scripts))
	for i, s := range in.Scripts {
		scriptTexts[i] = ingest.ScriptText(s)
		if _, dup := scriptPos[s.ID]; !dup {
			scriptPos[s.ID] = i
		}
	}
	kbIndex := v.NewIndex(kbTexts)
	scriptIndex := v.NewIndex(scriptTexts)

	report := Report{
		TotalQuestions: len(in.Questions),
		ByAnswerType:   make(map[string]Metrics),
		DifficultyDist: make(map[string]int),
		AnswerTypeDist: make(map[string]int),
	}
	categories := make(map[string]int)
	targets := make([]*target, len(in.Questions))
	for i, q := range in.Questions {
		report.DifficultyDist[q.Difficulty]++
		report.AnswerTypeDist[q.AnswerType]++
		categories[q.Category]++

		switch strings.ToUpper(q.AnswerType) {
		case model.AnswerTypeKB:
			if pos, ok := kbPos[q.TargetID]; ok {
				targets[i] = &target{index: kbIndex, pos: pos}
			}
		case model.AnswerTypeScript:
			if pos, ok := scriptPos[q.TargetID]; ok {
				targets[i] = &target{index: scriptIndex, pos: pos}
			}
		}
	}
	report.CategoryDist = topCounts(categories, opts.TopCategories)

	ranks := make([]int, len(in.Questions))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, tg := range targets {
		if tg == nil {
			continue
		}
		i, tg := i, tg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ranks[i] = tg.index.Rank(in.Questions[i].Text, tg.pos, opts.K)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var all []int
	byType := make(map[string][]int)
	for i, tg := range targets {
		if tg == nil {
			continue
		}
		all = append(all, ranks[i])
		key := strings.ToUpper(in.Questions[i].AnswerType)
		byType[key] = append(byType[key], ranks[i])
	}
	report.Overall = metrics(all)
	for key, r := range byType {
		report.ByAnswerType[key] = metrics(r)
	}
	if len(in.Questions) > 0 {
		report.CoverageRate = int(math.Round(float64(len(all)) / float64(len(in.Questions)) * 100))
	}
	return report, nil
}

// metrics turns 1-based ranks (0 = missed) into hit rates and MRR.
func metrics(ranks []int) Metrics {
	m := Metrics{Evaluated: len(ranks)}
	if len(ranks) == 0 {
		return m
	}
	var h1, h3, h5 int
	var rr float64
	for _, r := range ranks {
		if r == 0 {
			continue
		}
		if r <= 1 {
			h1++
		}
		if r <= 3 {
			h3++
		}
		if r <= 5 {
			h5++
			rr += 1 / float64(r)
		}
	}
	n := float64(len(ranks))
	m.HitAt1 = round(100*float64(h1)/n, 1)
	m.HitAt3 = round(100*float64(h3)/n, 1)
	m.HitAt5 = round(100*float64(h5)/n, 1)
	m.MRR = round(rr/n, 3)
	return m
}

func topCounts(counts map[string]int, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
