// Package model holds the support corpus records consumed by ticketlens.
//
// Records are plain values. Once a corpus is loaded nothing in ticketlens mutates them.
package model

import (
	"math"
	"strings"
	"time"
)

// Priority is the ticket urgency label.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Score maps a priority to its ordinal (Critical=4 ... Low=1). Unknown labels score 1.
func (p Priority) Score() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Sentiment is the categorical tone of a conversation.
type Sentiment string

const (
	SentimentPositive   Sentiment = "Positive"
	SentimentNeutral    Sentiment = "Neutral"
	SentimentNegative   Sentiment = "Negative"
	SentimentFrustrated Sentiment = "Frustrated"
	SentimentRelieved   Sentiment = "Relieved"
	SentimentCurious    Sentiment = "Curious"
)

// Sentiments lists every sentiment in heatmap column order.
var Sentiments = []Sentiment{
	SentimentFrustrated,
	SentimentNegative,
	SentimentNeutral,
	SentimentPositive,
	SentimentRelieved,
	SentimentCurious,
}

// Knowledge article provenance and review labels.
const (
	SourceSeed        = "SEED_KB"
	SourceSynthesized = "SYNTH_FROM_TICKET"
	StatusApproved    = "Approved"
	StatusRejected    = "Rejected"
	AnswerTypeKB      = "KB"
	AnswerTypeScript  = "SCRIPT"
)

// Fallback labels for missing fields.
const (
	Uncategorized    = "Uncategorized"
	UnknownRootCause = "Unknown"
	GeneralModule    = "General"
)

// EscalatedTier is the tier at which a ticket counts as escalated.
const EscalatedTier = 3

// Ticket is a closed or open support case.
type Ticket struct {
	Number               string
	ConversationID       string
	CreatedAt            time.Time
	ClosedAt             time.Time
	Status               string
	Priority             Priority
	Tier                 float64
	Product              string
	Module               string
	Category             string
	CaseType             string
	AccountName          string
	PropertyName         string
	PropertyCity         string
	PropertyState        string
	ContactRole          string
	Subject              string
	Description          string
	Resolution           string
	RootCause            string
	Tags                 string
	KBArticleID          string
	ScriptID             string
	GeneratedKBArticleID string
}

// TierLevel returns the tier rounded for display. A missing tier counts as tier 1.
func (t Ticket) TierLevel() int {
	if t.Tier == 0 {
		return 1
	}
	return int(math.Round(t.Tier))
}

// Escalated reports whether the ticket reached the specialist tier.
func (t Ticket) Escalated() bool {
	tier := t.Tier
	if tier == 0 {
		tier = 1
	}
	return tier >= EscalatedTier
}

// ResolutionMinutes returns closed minus created in minutes. ok is false when either
// timestamp is missing or the duration is not positive.
func (t Ticket) ResolutionMinutes() (float64, bool) {
	if t.CreatedAt.IsZero() || t.ClosedAt.IsZero() {
		return 0, false
	}
	d := t.ClosedAt.Sub(t.CreatedAt)
	if d <= 0 {
		return 0, false
	}
	return d.Minutes(), true
}

// CategoryOr returns the category or fallback when empty.
func (t Ticket) CategoryOr(fallback string) string {
	if strings.TrimSpace(t.Category) == "" {
		return fallback
	}
	return t.Category
}

// Conversation is the transcript that produced a ticket.
type Conversation struct {
	TicketNumber   string
	ConversationID string
	Channel        string
	Start          time.Time
	End            time.Time
	CustomerRole   string
	AgentName      string
	Product        string
	Category       string
	IssueSummary   string
	Transcript     string
	Sentiment      Sentiment
}

// KnowledgeArticle is a KB entry, either seeded by humans or synthesized from tickets.
type KnowledgeArticle struct {
	ID         string
	Title      string
	Body       string
	Tags       string
	Module     string
	Category   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Status     string
	SourceType string
}

// Seeded reports whether the article was human-authored.
func (a KnowledgeArticle) Seeded() bool {
	return a.SourceType == SourceSeed
}

// KBLineage is one piece of provenance evidence for an article.
type KBLineage struct {
	ArticleID       string
	SourceType      string
	SourceID        string
	Relationship    string
	EvidenceSnippet string
	At              time.Time
}

// LearningEvent records a detected knowledge gap and its review outcome.
type LearningEvent struct {
	ID                    string
	TriggerTicketNumber   string
	TriggerConversationID string
	DetectedGap           string
	ProposedArticleID     string
	DraftSummary          string
	FinalStatus           string
	ReviewerRole          string
	At                    time.Time
}

// Approved reports whether the proposed article was accepted.
func (e LearningEvent) Approved() bool {
	return strings.EqualFold(e.FinalStatus, StatusApproved)
}

// Script is an agent runbook referenced from tickets.
type Script struct {
	ID       string
	Title    string
	Purpose  string
	Inputs   string
	Module   string
	Category string
	Source   string
	Text     string
}

// Question is a retrieval benchmark item whose answer is a KB article or a script.
type Question struct {
	ID          string
	Source      string
	Product     string
	Category    string
	Module      string
	Difficulty  string
	Text        string
	AnswerType  string
	TargetID    string
	TargetTitle string
}
