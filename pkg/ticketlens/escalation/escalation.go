// Package escalation scores tickets for tier-3 escalation risk with a fixed-weight
// logistic model.
//
// The coefficients are hand-tuned, not trained. They live in Model so they can be
// replaced from configuration without touching the scoring code.
package escalation

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

// Risk buckets a probability.
type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
)

// Model is the logistic coefficient table.
type Model struct {
	Intercept       float64 `yaml:"intercept"`
	Priority        float64 `yaml:"priority"`
	CategoryRisk    float64 `yaml:"category_risk"`
	SubjectLength   float64 `yaml:"subject_length"`
	ErrorKeyword    float64 `yaml:"error_keyword"`
	CriticalKeyword float64 `yaml:"critical_keyword"`
	Sentiment       float64 `yaml:"sentiment"`
}

// DefaultModel returns the standard coefficients.
func DefaultModel() Model {
	return Model{
		Intercept:       -2.1,
		Priority:        0.85,
		CategoryRisk:    3.2,
		SubjectLength:   0.3,
		ErrorKeyword:    0.6,
		CriticalKeyword: 0.9,
		Sentiment:       -0.4,
	}
}

// Config is everything the predictor needs besides the tickets.
type Config struct {
	Model               Model    `yaml:"model"`
	ErrorKeywords       []string `yaml:"error_keywords"`
	CriticalKeywords    []string `yaml:"critical_keywords"`
	DefaultCategoryRisk float64  `yaml:"default_category_risk"`
	HighThreshold       float64  `yaml:"high_threshold"`
	MediumThreshold     float64  `yaml:"medium_threshold"`
}

// DefaultConfig returns the standard model, keyword lists and thresholds.
func DefaultConfig() Config {
	return Config{
		Model: DefaultModel(),
		ErrorKeywords: []string{
			"error", "fail", "crash", "unable", "cannot", "broken",
			"stuck", "corrupt", "missing", "timeout", "denied",
		},
		CriticalKeywords: []string{
			"urgent", "critical", "emergency", "outage", "down",
			"blocked", "compliance", "audit", "deadline", "regulatory",
		},
		DefaultCategoryRisk: 0.3,
		HighThreshold:       0.7,
		MediumThreshold:     0.45,
	}
}

// Features are the model inputs for one ticket.
type Features struct {
	PriorityScore      float64 `json:"priority_score"`
	CategoryRisk       float64 `json:"category_risk"`
	SubjectLength      float64 `json:"subject_length"`
	HasErrorKeyword    float64 `json:"has_error_keyword"`
	HasCriticalKeyword float64 `json:"has_critical_keyword"`
	// SentimentScore is always 0 until conversation sentiment is wired in.
	SentimentScore float64 `json:"sentiment_score"`
}

// Prediction is the escalation verdict for one ticket.
type Prediction struct {
	TicketNumber string   `json:"ticket_number"`
	Subject      string   `json:"subject"`
	Category     string   `json:"category"`
	Probability  float64  `json:"probability"`
	Risk         Risk     `json:"risk"`
	Factors      []string `json:"factors"`
	Features     Features `json:"features"`
}

// Predictor applies a Config to ticket batches. It holds no mutable state.
type Predictor struct {
	cfg Config
}

// NewPredictor creates a predictor. Keywords are matched lowercase.
func NewPredictor(cfg Config) *Predictor {
	d := DefaultConfig()
	if cfg.Model == (Model{}) {
		cfg.Model = d.Model
	}
	if len(cfg.ErrorKeywords) == 0 {
		cfg.ErrorKeywords = d.ErrorKeywords
	}
	if len(cfg.CriticalKeywords) == 0 {
		cfg.CriticalKeywords = d.CriticalKeywords
	}
	if cfg.DefaultCategoryRisk <= 0 {
		cfg.DefaultCategoryRisk = d.DefaultCategoryRisk
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = d.HighThreshold
	}
	if cfg.MediumThreshold <= 0 {
		cfg.MediumThreshold = d.MediumThreshold
	}
	cfg.ErrorKeywords = lowerAll(cfg.ErrorKeywords)
	cfg.CriticalKeywords = lowerAll(cfg.CriticalKeywords)
	return &Predictor{cfg: cfg}
}

// Default returns a predictor with DefaultConfig.
func Default() *Predictor {
	return NewPredictor(DefaultConfig())
}

// CategoryRisk returns, per category, the fraction of tickets that reached tier 3.
func CategoryRisk(tickets []model.Ticket) map[string]float64 {
	total := make(map[string]int)
	escalated := make(map[string]int)
	for _, t := range tickets {
		total[t.Category]++
		if t.Escalated() {
			escalated[t.Category]++
		}
	}
	out := make(map[string]float64, len(total))
	for cat, n := range total {
		out[cat] = float64(escalated[cat]) / float64(n)
	}
	return out
}

// Predict scores every ticket. Category risk comes from riskOverride when non-nil,
// otherwise it is computed over the batch itself.
func (p *Predictor) Predict(tickets []model.Ticket, riskOverride map[string]float64) []Prediction {
	risk := riskOverride
	if risk == nil {
		risk = CategoryRisk(tickets)
	}

	maxSubject := 1
	for _, t := range tickets {
		if n := utf8.RuneCountInString(t.Subject); n > maxSubject {
			maxSubject = n
		}
	}

	out := make([]Prediction, 0, len(tickets))
	for _, t := range tickets {
		f := p.Features(t, risk, maxSubject)
		prob := sigmoid(p.Logit(f))
		out = append(out, Prediction{
			TicketNumber: t.Number,
			Subject:      t.Subject,
			Category:     t.Category,
			Probability:  prob,
			Risk:         p.RiskFor(prob),
			Factors:      factors(t, f),
			Features:     f,
		})
	}
	return out
}

// Features builds the model inputs for t. maxSubject is the longest subject in the
// batch, in runes, floored to 1.
func (p *Predictor) Features(t model.Ticket, risk map[string]float64, maxSubject int) Features {
	if maxSubject < 1 {
		maxSubject = 1
	}
	catRisk, ok := risk[t.Category]
	if !ok {
		catRisk = p.cfg.DefaultCategoryRisk
	}
	text := strings.ToLower(t.Subject + " " + t.Description)
	return Features{
		PriorityScore:      float64(t.Priority.Score()),
		CategoryRisk:       catRisk,
		SubjectLength:      float64(utf8.RuneCountInString(t.Subject)) / float64(maxSubject),
		HasErrorKeyword:    flag(containsAny(text, p.cfg.ErrorKeywords)),
		HasCriticalKeyword: flag(containsAny(text, p.cfg.CriticalKeywords)),
	}
}

// Logit is the linear score before the sigmoid.
func (p *Predictor) Logit(f Features) float64 {
	m := p.cfg.Model
	return m.Intercept +
		m.Priority*f.PriorityScore +
		m.CategoryRisk*f.CategoryRisk +
		m.SubjectLength*f.SubjectLength +
		m.ErrorKeyword*f.HasErrorKeyword +
		m.CriticalKeyword*f.HasCriticalKeyword +
		m.Sentiment*f.SentimentScore
}

// RiskFor buckets a probability.
func (p *Predictor) RiskFor(prob float64) Risk {
	switch {
	case prob > p.cfg.HighThreshold:
		return RiskHigh
	case prob > p.cfg.MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

func factors(t model.Ticket, f Features) []string {
	out := []string{}
	if f.PriorityScore >= 3 {
		out = append(out, fmt.Sprintf("%s priority", t.Priority))
	}
	if f.CategoryRisk > 0.4 {
		out = append(out, fmt.Sprintf("High-risk category (%.0f%% hist. escalation)", f.CategoryRisk*100))
	}
	if f.HasErrorKeyword > 0 {
		out = append(out, "Error keywords detected")
	}
	if f.HasCriticalKeyword > 0 {
		out = append(out, "Critical language detected")
	}
	return out
}

// Summary aggregates a batch of predictions.
type Summary struct {
	Total           int     `json:"total"`
	High            int     `json:"high"`
	Medium          int     `json:"medium"`
	Low             int     `json:"low"`
	MeanProbability float64 `json:"mean_probability"`
}

// Summarize counts predictions per risk bucket.
func Summarize(preds []Prediction) Summary {
	s := Summary{Total: len(preds)}
	var sum float64
	for _, p := range preds {
		sum += p.Probability
		switch p.Risk {
		case RiskHigh:
			s.High++
		case RiskMedium:
			s.Medium++
		default:
			s.Low++
		}
	}
	if len(preds) > 0 {
		s.MeanProbability = math.Round(sum/float64(len(preds))*1000) / 1000
	}
	return s
}

// SortByProbability orders predictions from most to least likely to escalate.
func SortByProbability(preds []Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Probability > preds[j].Probability
	})
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
