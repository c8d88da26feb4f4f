// Package cluster groups tickets into recurring root-cause patterns.
//
// Tickets are bucketed by category, then by a fixed-length prefix of the agent-written
// root cause. Root causes are short structured phrases, so prefix equality is a
// precise enough proxy for "same cause" and keeps every cluster explainable.
package cluster

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/ticketlens/pkg/ticketlens/internalerr"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

// Severity buckets a cluster by escalation rate.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Recommended actions.
const (
	ActionUpdateKB = "Create or update KB article to reduce escalations"
	ActionMonitor  = "Monitor: current KB coverage may be sufficient"
)

// Cluster is one recurring failure pattern.
type Cluster struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Category             string    `json:"category"`
	RootCause            string    `json:"root_cause"`
	TicketCount          int       `json:"ticket_count"`
	Severity             Severity  `json:"severity"`
	AvgResolutionMinutes int       `json:"avg_resolution_minutes"`
	EscalationRate       int       `json:"escalation_rate"`
	Tickets              []string  `json:"tickets"`
	RelatedKBs           []string  `json:"related_kbs"`
	RelatedScripts       []string  `json:"related_scripts"`
	RecommendedAction    string    `json:"recommended_action"`
	FirstDetected        time.Time `json:"first_detected"`
	LastOccurrence       time.Time `json:"last_occurrence"`
}

// SearchText is the text a cluster contributes to a similarity corpus.
func (c Cluster) SearchText() string {
	return c.Name + " " + c.Description + " " + c.Category
}

// Options controls bucket sizes and truncation.
type Options struct {
	MinCategorySize int `yaml:"min_category_size"`
	MinGroupSize    int `yaml:"min_group_size"`
	RootCausePrefix int `yaml:"root_cause_prefix"`
	NamePrefix      int `yaml:"name_prefix"`
	MaxRelated      int `yaml:"max_related"`
	// HighEscalationRate is the percent above which a cluster gets ActionUpdateKB.
	HighEscalationRate int `yaml:"high_escalation_rate"`
}

// DefaultOptions returns the standard clustering thresholds.
func DefaultOptions() Options {
	return Options{
		MinCategorySize:    3,
		MinGroupSize:       2,
		RootCausePrefix:    60,
		NamePrefix:         50,
		MaxRelated:         5,
		HighEscalationRate: 40,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinCategorySize <= 0 {
		o.MinCategorySize = d.MinCategorySize
	}
	if o.MinGroupSize <= 0 {
		o.MinGroupSize = d.MinGroupSize
	}
	if o.RootCausePrefix <= 0 {
		o.RootCausePrefix = d.RootCausePrefix
	}
	if o.NamePrefix <= 0 {
		o.NamePrefix = d.NamePrefix
	}
	if o.MaxRelated <= 0 {
		o.MaxRelated = d.MaxRelated
	}
	if o.HighEscalationRate <= 0 {
		o.HighEscalationRate = d.HighEscalationRate
	}
	return o
}

// group is an insertion-ordered bucket of tickets.
type group struct {
	key     string
	tickets []model.Ticket
}

// orderedGroups buckets tickets by key, keeping first-seen key order.
func orderedGroups(tickets []model.Ticket, key func(model.Ticket) string) []*group {
	var out []*group
	index := make(map[string]*group)
	for _, t := range tickets {
		k := key(t)
		g, ok := index[k]
		if !ok {
			g = &group{key: k}
			index[k] = g
			out = append(out, g)
		}
		g.tickets = append(g.tickets, t)
	}
	return out
}

// Build partitions tickets into clusters sorted by descending ticket count.
// Categories below MinCategorySize and root-cause groups below MinGroupSize are dropped.
func Build(tickets []model.Ticket, opts Options) []Cluster {
	opts = opts.withDefaults()

	categories := orderedGroups(tickets, func(t model.Ticket) string {
		return t.CategoryOr(model.Uncategorized)
	})

	var clusters []Cluster
	seq := 0
	for _, cat := range categories {
		if len(cat.tickets) < opts.MinCategorySize {
			continue
		}
		causes := orderedGroups(cat.tickets, func(t model.Ticket) string {
			rc := t.RootCause
			if strings.TrimSpace(rc) == "" {
				rc = model.UnknownRootCause
			}
			return truncate(rc, opts.RootCausePrefix)
		})
		for _, sub := range causes {
			if len(sub.tickets) < opts.MinGroupSize {
				continue
			}
			seq++
			clusters = append(clusters, summarize(seq, cat.key, sub.key, sub.tickets, opts))
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].TicketCount > clusters[j].TicketCount
	})
	return clusters
}

func summarize(seq int, category, rootCause string, members []model.Ticket, opts Options) Cluster {
	rate := EscalationRate(members)

	var totalMinutes float64
	var resolved int
	accounts := make(map[string]struct{})
	ids := make([]string, 0, len(members))
	var created []time.Time
	var kbs, scripts []string
	for _, t := range members {
		ids = append(ids, t.Number)
		if mins, ok := t.ResolutionMinutes(); ok {
			totalMinutes += mins
			resolved++
		}
		accounts[t.AccountName] = struct{}{}
		if !t.CreatedAt.IsZero() {
			created = append(created, t.CreatedAt)
		}
		kbs = appendDistinct(kbs, t.KBArticleID, opts.MaxRelated)
		scripts = appendDistinct(scripts, t.ScriptID, opts.MaxRelated)
	}
	sort.Slice(created, func(i, j int) bool { return created[i].Before(created[j]) })

	c := Cluster{
		ID:             fmt.Sprintf("CLU-%04d", seq),
		Name:           fmt.Sprintf("%s: %s", category, truncate(rootCause, opts.NamePrefix)),
		Description:    fmt.Sprintf("Pattern in %s (%s). Affects %d tickets across %d accounts.", category, rootCause, len(members), len(accounts)),
		Category:       category,
		RootCause:      rootCause,
		TicketCount:    len(members),
		Severity:       SeverityFor(rate),
		EscalationRate: rate,
		Tickets:        ids,
		RelatedKBs:     kbs,
		RelatedScripts: scripts,
	}
	if resolved > 0 {
		c.AvgResolutionMinutes = int(math.Round(totalMinutes / float64(resolved)))
	}
	if rate > opts.HighEscalationRate {
		c.RecommendedAction = ActionUpdateKB
	} else {
		c.RecommendedAction = ActionMonitor
	}
	if len(created) > 0 {
		c.FirstDetected = created[0]
		c.LastOccurrence = created[len(created)-1]
	}
	return c
}

// EscalationRate is the rounded percentage of tickets at the escalated tier.
func EscalationRate(tickets []model.Ticket) int {
	if len(tickets) == 0 {
		return 0
	}
	escalated := 0
	for _, t := range tickets {
		if t.Escalated() {
			escalated++
		}
	}
	return int(math.Round(float64(escalated) / float64(len(tickets)) * 100))
}

// SeverityFor maps an escalation percentage to a severity bucket.
func SeverityFor(rate int) Severity {
	switch {
	case rate > 60:
		return SeverityCritical
	case rate > 40:
		return SeverityHigh
	case rate > 20:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SeverityCounts tallies clusters per severity.
func SeverityCounts(clusters []Cluster) map[Severity]int {
	out := make(map[Severity]int, 4)
	for _, c := range clusters {
		out[c.Severity]++
	}
	return out
}

// Find returns the cluster with the given id.
func Find(clusters []Cluster, id string) (Cluster, error) {
	for _, c := range clusters {
		if c.ID == id {
			return c, nil
		}
	}
	return Cluster{}, fmt.Errorf("cluster %s: %w", id, internalerr.ErrNotFound)
}

// Members returns the tickets belonging to c, in corpus order.
func Members(c Cluster, tickets []model.Ticket) []model.Ticket {
	want := make(map[string]struct{}, len(c.Tickets))
	for _, id := range c.Tickets {
		want[id] = struct{}{}
	}
	var out []model.Ticket
	for _, t := range tickets {
		if _, ok := want[t.Number]; ok {
			out = append(out, t)
		}
	}
	return out
}

func appendDistinct(list []string, val string, limit int) []string {
	if val == "" || len(list) >= limit {
		return list
	}
	for _, existing := range list {
		if existing == val {
			return list
		}
	}
	return append(list, val)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
