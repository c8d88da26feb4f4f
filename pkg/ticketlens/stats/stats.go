// Package stats computes headline counts and distributions for a corpus.
package stats

import (
	"fmt"
	"math"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

// Input is the slice of the corpus the dashboard reads.
type Input struct {
	Tickets        []model.Ticket
	Conversations  []model.Conversation
	Articles       []model.KnowledgeArticle
	Scripts        []model.Script
	LearningEvents []model.LearningEvent
	Questions      []model.Question
}

// Dashboard is the summary shown on the overview page.
type Dashboard struct {
	TotalTickets         int `json:"total_tickets"`
	TotalConversations   int `json:"total_conversations"`
	TotalKBArticles      int `json:"total_kb_articles"`
	TotalScripts         int `json:"total_scripts"`
	TotalQuestions       int `json:"total_questions"`
	TotalLearningEvents  int `json:"total_learning_events"`
	ApprovedEvents       int `json:"approved_events"`
	RejectedEvents       int `json:"rejected_events"`
	AvgResolutionMinutes int `json:"avg_resolution_minutes"`
	SeedKBCount          int `json:"seed_kb_count"`
	GeneratedKBCount     int `json:"generated_kb_count"`

	PriorityDist    map[string]int `json:"priority_dist"`
	TierDist        map[string]int `json:"tier_dist"`
	CategoryDist    map[string]int `json:"category_dist"`
	SentimentDist   map[string]int `json:"sentiment_dist"`
	KBSourceDist    map[string]int `json:"kb_source_dist"`
	EventStatusDist map[string]int `json:"event_status_dist"`
}

// Compute builds the dashboard. Tiers are bucketed as "Tier N" after rounding, with a
// missing tier reported as Tier 0.
func Compute(in Input) Dashboard {
	d := Dashboard{
		TotalTickets:        len(in.Tickets),
		TotalConversations:  len(in.Conversations),
		TotalKBArticles:     len(in.Articles),
		TotalScripts:        len(in.Scripts),
		TotalQuestions:      len(in.Questions),
		TotalLearningEvents: len(in.LearningEvents),
		PriorityDist:        make(map[string]int),
		TierDist:            make(map[string]int),
		CategoryDist:        make(map[string]int),
		SentimentDist:       make(map[string]int),
		KBSourceDist:        make(map[string]int),
		EventStatusDist:     make(map[string]int),
	}

	var total float64
	var resolved int
	for _, t := range in.Tickets {
		d.PriorityDist[string(t.Priority)]++
		d.TierDist[fmt.Sprintf("Tier %d", int(math.Round(t.Tier)))]++
		d.CategoryDist[t.Category]++
		if mins, ok := t.ResolutionMinutes(); ok {
			total += mins
			resolved++
		}
	}
	if resolved > 0 {
		d.AvgResolutionMinutes = int(math.Round(total / float64(resolved)))
	}

	for _, c := range in.Conversations {
		d.SentimentDist[string(c.Sentiment)]++
	}
	for _, kb := range in.Articles {
		src := kb.SourceType
		if src == "" {
			src = "Unknown"
		}
		d.KBSourceDist[src]++
	}
	for _, e := range in.LearningEvents {
		d.EventStatusDist[e.FinalStatus]++
	}

	d.ApprovedEvents = d.EventStatusDist[model.StatusApproved]
	d.RejectedEvents = d.EventStatusDist[model.StatusRejected]
	d.SeedKBCount = d.KBSourceDist[model.SourceSeed]
	d.GeneratedKBCount = d.KBSourceDist[model.SourceSynthesized]
	return d
}
