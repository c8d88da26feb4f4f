// Package narrative explains a cluster in prose: the dominant failure mode, what
// agents see, how it was fixed and what it costs.
//
// The analysis is built from the tickets themselves. When a Completer is configured
// it is asked first, and its answer is used only if it parses and is substantive;
// any failure falls back to the data-driven analysis.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/ticketlens/pkg/ticketlens/cluster"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

// Completer is a chat-style language model.
type Completer interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Sources of an analysis.
const (
	SourceData = "data-analysis"
	SourceLLM  = "llm"
)

// CauseCount is a root cause with its share of the cluster.
type CauseCount struct {
	Cause string `json:"cause"`
	Count int    `json:"count"`
	Pct   int    `json:"pct"`
}

// ResolutionCount is a resolution text (truncated) with its frequency.
type ResolutionCount struct {
	Resolution string `json:"resolution"`
	Count      int    `json:"count"`
}

// Details are the raw figures behind an analysis.
type Details struct {
	SampleSize     int               `json:"sample_size"`
	UniqueAccounts int               `json:"unique_accounts"`
	EscalationRate int               `json:"escalation_rate"`
	TierDist       map[int]int       `json:"tier_distribution"`
	PriorityDist   map[string]int    `json:"priority_distribution"`
	TopRootCauses  []CauseCount      `json:"top_root_causes"`
	TopResolutions []ResolutionCount `json:"top_resolutions"`
}

// Analysis is the narrative for one cluster.
type Analysis struct {
	PatternName       string   `json:"pattern_name"`
	RootCause         string   `json:"root_cause"`
	CommonSymptoms    []string `json:"common_symptoms"`
	ResolutionSteps   []string `json:"resolution_steps"`
	Severity          string   `json:"severity"`
	RecommendedAction string   `json:"recommended_action"`
	EstimatedImpact   string   `json:"estimated_impact"`
	Source            string   `json:"source"`
	Details           Details  `json:"technical_details"`
}

// Options configures an Analyzer.
type Options struct {
	ProductName string `yaml:"product_name"`
	// MinutesPerEscalation and CostPerMinute drive the impact estimate.
	MinutesPerEscalation float64 `yaml:"minutes_per_escalation"`
	CostPerMinute        float64 `yaml:"cost_per_minute"`
	DeflectionRate       float64 `yaml:"deflection_rate"`
	PromptTickets        int     `yaml:"prompt_tickets"`

	Completer Completer     `yaml:"-"`
	Logger    *logrus.Logger `yaml:"-"`
}

// DefaultOptions returns the standard estimate parameters with no Completer.
func DefaultOptions() Options {
	return Options{
		ProductName:          "PropertySuite",
		MinutesPerEscalation: 45,
		CostPerMinute:        1.2,
		DeflectionRate:       0.55,
		PromptTickets:        6,
	}
}

// Analyzer builds cluster narratives. It is safe for concurrent use when its
// Completer is.
type Analyzer struct {
	opts Options
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	d := DefaultOptions()
	if opts.ProductName == "" {
		opts.ProductName = d.ProductName
	}
	if opts.MinutesPerEscalation <= 0 {
		opts.MinutesPerEscalation = d.MinutesPerEscalation
	}
	if opts.CostPerMinute <= 0 {
		opts.CostPerMinute = d.CostPerMinute
	}
	if opts.DeflectionRate <= 0 {
		opts.DeflectionRate = d.DeflectionRate
	}
	if opts.PromptTickets <= 0 {
		opts.PromptTickets = d.PromptTickets
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Analyzer{opts: opts}
}

// profile is the frequency summary of a ticket set.
type profile struct {
	n          int
	module     string
	rootCauses []freq
	resolution []freq
	symptoms   []freq
	accounts   int
	avgTier    float64
	urgent     int
	escalated  int
	escRate    int
	tierDist   map[int]int
	priDist    map[string]int
}

func newProfile(tickets []model.Ticket) profile {
	p := profile{
		n:        len(tickets),
		module:   model.GeneralModule,
		tierDist: make(map[int]int),
		priDist:  make(map[string]int),
	}
	var rcs, res, subjects []string
	accounts := make(map[string]struct{})
	var tierSum int
	for i, t := range tickets {
		if i == 0 && t.Category != "" {
			p.module = t.Category
		}
		if t.RootCause != "" {
			rcs = append(rcs, t.RootCause)
		}
		if t.Resolution != "" {
			res = append(res, t.Resolution)
		}
		if t.Subject != "" {
			subjects = append(subjects, t.Subject)
		}
		if t.AccountName != "" {
			accounts[t.AccountName] = struct{}{}
		}
		tier := t.TierLevel()
		tierSum += tier
		p.tierDist[tier]++
		p.priDist[string(t.Priority)]++
		if t.Priority == model.PriorityCritical || t.Priority == model.PriorityHigh {
			p.urgent++
		}
		if tier >= model.EscalatedTier {
			p.escalated++
		}
	}
	p.rootCauses = rank(rcs)
	p.resolution = rank(res)
	p.symptoms = rank(subjects)
	if len(p.symptoms) > 6 {
		p.symptoms = p.symptoms[:6]
	}
	p.accounts = len(accounts)
	if p.n > 0 {
		p.avgTier = math.Round(float64(tierSum)/float64(p.n)*10) / 10
		p.escRate = pct(p.escalated, p.n)
	}
	return p
}

func (p profile) details() Details {
	d := Details{
		SampleSize:     p.n,
		UniqueAccounts: p.accounts,
		EscalationRate: p.escRate,
		TierDist:       p.tierDist,
		PriorityDist:   p.priDist,
		TopRootCauses:  []CauseCount{},
		TopResolutions: []ResolutionCount{},
	}
	for i, f := range p.rootCauses {
		if i == 4 {
			break
		}
		d.TopRootCauses = append(d.TopRootCauses, CauseCount{Cause: f.value, Count: f.count, Pct: pct(f.count, p.n)})
	}
	for i, f := range p.resolution {
		if i == 3 {
			break
		}
		d.TopResolutions = append(d.TopResolutions, ResolutionCount{Resolution: truncate(f.value, 120), Count: f.count})
	}
	return d
}

// Analyze explains the given cluster members.
func (a *Analyzer) Analyze(ctx context.Context, tickets []model.Ticket) Analysis {
	p := newProfile(tickets)
	severity := string(cluster.SeverityFor(p.escRate))

	if a.opts.Completer != nil && p.n > 0 {
		if out, ok := a.complete(ctx, tickets, severity); ok {
			out.Source = SourceLLM
			out.Details = p.details()
			return out
		}
	}
	return a.fromData(p, severity)
}

const systemPrompt = "You are a support operations analyst. Reply with a single JSON object and nothing else."

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

func (a *Analyzer) complete(ctx context.Context, tickets []model.Ticket, severity string) (Analysis, bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze %d %s support tickets. Identify the root cause pattern.\n\n", len(tickets), a.opts.ProductName)
	for i, t := range tickets {
		if i == a.opts.PromptTickets {
			break
		}
		fmt.Fprintf(&b, "[%d] %s | T%d | %s\n  Root: %s\n  Fix: %s\n", i+1, t.Subject, t.TierLevel(), t.Priority,
			truncate(t.RootCause, 120), truncate(t.Resolution, 120))
	}
	fmt.Fprintf(&b, "\nReturn JSON: {\"pattern_name\":\"...\",\"root_cause\":\"...\",\"common_symptoms\":[],\"resolution_steps\":[],\"severity\":%q,\"recommended_action\":\"...\",\"estimated_impact\":\"...\"}", severity)

	reply, err := a.opts.Completer.Chat(ctx, systemPrompt, b.String())
	if err != nil {
		a.opts.Logger.WithError(err).Warn("narrative completion failed, using data analysis")
		return Analysis{}, false
	}
	var out Analysis
	if !decodeObject(reply, &out) || out.PatternName == "" || len(out.RootCause) <= 50 {
		a.opts.Logger.WithField("reply_len", len(reply)).Warn("narrative completion unusable, using data analysis")
		return Analysis{}, false
	}
	return out, true
}

// decodeObject unmarshals the outermost JSON object found in text.
func decodeObject(text string, v any) bool {
	m := jsonObject.FindString(text)
	if m == "" {
		return false
	}
	return json.Unmarshal([]byte(m), v) == nil
}

func (a *Analyzer) fromData(p profile, severity string) Analysis {
	product := a.opts.ProductName
	primary := model.UnknownRootCause
	primaryCount := 0
	if len(p.rootCauses) > 0 {
		primary, primaryCount = p.rootCauses[0].value, p.rootCauses[0].count
	}

	var name string
	if len(p.symptoms) > 0 {
		name = fmt.Sprintf("%s Module: %s", p.module, truncate(p.symptoms[0].value, 55))
	} else {
		name = fmt.Sprintf("%s: %s", p.module, truncate(primary, 50))
	}

	var rc strings.Builder
	fmt.Fprintf(&rc, "**Primary failure mode:** %s, identified in %d of %d cases (%d%% of cluster). ",
		primary, primaryCount, p.n, pct(primaryCount, p.n))
	if len(p.rootCauses) > 1 {
		second := p.rootCauses[1]
		fmt.Fprintf(&rc, "**Secondary contributor:** %s (%d cases, %d%%). ", second.value, second.count, pct(second.count, p.n))
	}
	manifest := "standard operations are attempted"
	if len(p.symptoms) > 0 {
		manifest = strings.ToLower(p.symptoms[0].value)
	}
	fmt.Fprintf(&rc, "\n\nThe pattern affects the %s workflow in %s, manifesting when %s. ", p.module, product, manifest)
	fmt.Fprintf(&rc, "Escalation analysis shows %d%% of cases required Tier 3 intervention (%d tickets), with average tier level of %s. ",
		p.escRate, p.escalated, formatTier(p.avgTier))
	if p.urgent > 0 {
		fmt.Fprintf(&rc, "%d tickets (%d%%) were flagged High or Critical priority, indicating significant operational impact.", p.urgent, pct(p.urgent, p.n))
	}

	symptoms := make([]string, 0, len(p.symptoms))
	for _, s := range p.symptoms {
		plural := ""
		if s.count > 1 {
			plural = "s"
		}
		symptoms = append(symptoms, fmt.Sprintf("%s (%d occurrence%s, %d%% of cluster)", s.value, s.count, plural, pct(s.count, p.n)))
	}

	deflection := math.Round(float64(p.escalated) * a.opts.DeflectionRate)
	minutes := math.Round(float64(p.escalated) * a.opts.DeflectionRate * a.opts.MinutesPerEscalation)

	var action string
	if p.escRate > 35 {
		action = fmt.Sprintf("**Immediate:** Create Tier 1 resolution runbook targeting the top %d symptoms. Deploy to the %s knowledge base with auto-suggestion enabled for %s module tickets. **Expected outcome:** Reduce Tier 3 escalations from %d%% to <15%% within 30 days, deflecting ~%.0f cases/month.",
			min(3, len(symptoms)), product, p.module, p.escRate, deflection)
	} else {
		action = fmt.Sprintf("**Recommended:** Expand existing %s KB coverage to include %d identified symptom variations. Enable proactive article suggestions in the %s agent desktop for this category. **Expected outcome:** Reduce average resolution time by %.0f%% and improve first-contact resolution.",
			p.module, len(symptoms), product, math.Round(15+p.avgTier*8))
	}

	impact := fmt.Sprintf("Resolving this pattern addresses %d historical tickets across %d accounts. At current escalation rates, this cluster generates ~%d Tier 3 escalations consuming approximately %.0f agent-minutes monthly. KB coverage should deflect %.0f escalations/month, saving an estimated $%.0f in support costs (based on $%.2f/min Tier 3 fully-loaded cost).",
		p.n, p.accounts, p.escalated, minutes, deflection, math.Round(minutes*a.opts.CostPerMinute), a.opts.CostPerMinute)

	return Analysis{
		PatternName:       name,
		RootCause:         rc.String(),
		CommonSymptoms:    symptoms,
		ResolutionSteps:   resolutionSteps(p, product),
		Severity:          severity,
		RecommendedAction: action,
		EstimatedImpact:   impact,
		Source:            SourceData,
		Details:           p.details(),
	}
}

// resolutionSteps takes sentences from the most common resolution, tops up from the
// second most common, and pads with generic steps when fewer than five remain.
func resolutionSteps(p profile, product string) []string {
	var steps []string
	if len(p.resolution) > 0 {
		steps = append(steps, sentences(p.resolution[0].value, 15)...)
	}
	if len(steps) < 3 && len(p.resolution) > 1 {
		for _, s := range sentences(p.resolution[1].value, 15) {
			if len(steps) >= 6 || hasPrefixOverlap(steps, s, 30) {
				continue
			}
			steps = append(steps, s)
		}
	}
	if len(steps) < 5 {
		steps = append(steps,
			fmt.Sprintf("Verify %s module configuration in %s Admin > Module Settings", p.module, product),
			fmt.Sprintf("Check the %s system log (Admin > Diagnostics) for related error codes", product),
			fmt.Sprintf("If unresolved after Tier 1/2 steps, escalate via the %s support portal with a diagnostic bundle attached", product),
		)
	}
	if len(steps) > 6 {
		steps = steps[:6]
	}
	return steps
}

var sentenceBreak = regexp.MustCompile(`[.!]\s+`)

// sentences splits text on sentence punctuation and keeps trimmed pieces longer than minLen.
func sentences(text string, minLen int) []string {
	var out []string
	for _, s := range sentenceBreak.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len(s) > minLen {
			out = append(out, s)
		}
	}
	return out
}

func hasPrefixOverlap(list []string, s string, n int) bool {
	prefix := truncate(s, n)
	for _, existing := range list {
		if truncate(existing, n) == prefix {
			return true
		}
	}
	return false
}

func formatTier(x float64) string {
	return fmt.Sprintf("%g", x)
}

func pct(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
