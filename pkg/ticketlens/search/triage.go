package search

import (
	"fmt"

	"github.com/cognicore/ticketlens/pkg/ticketlens/ingest"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
	"github.com/cognicore/ticketlens/pkg/ticketlens/similarity"
)

// TicketSummary is the triaged ticket as shown to the agent.
type TicketSummary struct {
	Number     string `json:"number"`
	Subject    string `json:"subject"`
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	Tier       int    `json:"tier"`
	Account    string `json:"account"`
	Property   string `json:"property"`
	Resolution string `json:"resolution"`
}

// Triage is the routing verdict for one incoming ticket.
type Triage struct {
	Ticket         TicketSummary        `json:"ticket"`
	Keywords       []similarity.Keyword `json:"keywords"`
	ClusterMatches []ClusterMatch       `json:"cluster_matches"`
	KBMatches      []ArticleMatch       `json:"kb_matches"`
	// HasGap is set when no article reaches GapRelevance.
	HasGap         bool   `json:"has_gap"`
	Recommendation string `json:"recommendation"`
}

// Triage runs the intake pipeline for t: keywords against the first
// TriageSubjectPool subjects of pool, then cluster and KB headline matching on
// subject plus category.
func (c *Catalog) Triage(t model.Ticket, pool []model.Ticket) Triage {
	n := min(len(pool), c.opts.TriageSubjectPool)
	subjects := make([]string, n)
	for i := range subjects {
		subjects[i] = pool[i].Subject
	}

	query := t.Subject + " " + t.Category
	res := Triage{
		Ticket: TicketSummary{
			Number:     t.Number,
			Subject:    t.Subject,
			Category:   t.Category,
			Priority:   string(t.Priority),
			Tier:       t.TierLevel(),
			Account:    t.AccountName,
			Property:   t.PropertyName,
			Resolution: t.Resolution,
		},
		Keywords:       c.v.Keywords(ingest.TicketText(t), subjects, c.opts.TriageKeywords),
		ClusterMatches: c.matchClusters(query, c.opts.TriageLimit, c.opts.TriageClusterThreshold),
		KBMatches:      c.matchArticles(c.kbShort, query, c.opts.TriageLimit, c.opts.TriageKBThreshold, false),
	}
	res.HasGap = len(res.KBMatches) == 0 || res.KBMatches[0].Relevance < c.opts.GapRelevance
	if res.HasGap {
		res.Recommendation = "Knowledge gap detected: generate a new KB article for this pattern"
	} else {
		res.Recommendation = fmt.Sprintf("Matched to %d existing article(s): suggest %q to agent", len(res.KBMatches), res.KBMatches[0].Title)
	}
	return res
}
