package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/ticketlens/pkg/ticketlens/internalerr"
)

// Confidence grades how well the knowledge base covers a message.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Pattern is a related cluster shown next to a suggested reply.
type Pattern struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

// Suggestion is a grounded reply draft for an agent.
type Suggestion struct {
	Response        string         `json:"suggested_response"`
	Confidence      Confidence     `json:"confidence"`
	Citations       []ArticleMatch `json:"citations"`
	RelatedPatterns []Pattern      `json:"related_patterns"`
	// EscalationRisk is the inverse of Confidence.
	EscalationRisk string `json:"escalation_risk"`
}

var sentenceBreak = regexp.MustCompile(`[.!]\s+`)

// Copilot drafts a reply to a customer message from the best matching articles.
func (c *Catalog) Copilot(message string) (Suggestion, error) {
	if strings.TrimSpace(message) == "" {
		return Suggestion{}, fmt.Errorf("copilot message: %w", internalerr.ErrInvalidInput)
	}

	s := Suggestion{
		Citations:       c.matchArticles(c.kbFull, message, c.opts.CopilotKBLimit, c.opts.CopilotThreshold, true),
		RelatedPatterns: []Pattern{},
		Confidence:      ConfidenceLow,
	}
	for _, m := range c.matchClusters(message, c.opts.CopilotClusterLimit, c.opts.CopilotThreshold) {
		s.RelatedPatterns = append(s.RelatedPatterns, Pattern{ID: m.ID, Name: m.Name, Severity: string(m.Severity)})
	}

	if len(s.Citations) > 0 && s.Citations[0].Relevance > c.opts.MediumConfidence {
		top := s.Citations[0]
		s.Confidence = ConfidenceMedium
		if top.Relevance > c.opts.HighConfidence {
			s.Confidence = ConfidenceHigh
		}
		s.Response = c.groundedReply(top)
	} else {
		s.Response = c.clarifyingReply()
	}

	switch s.Confidence {
	case ConfidenceHigh:
		s.EscalationRisk = "low"
	case ConfidenceMedium:
		s.EscalationRisk = "medium"
	default:
		s.EscalationRisk = "high"
	}
	return s, nil
}

func (c *Catalog) groundedReply(top ArticleMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for reaching out regarding this issue. Based on our knowledge base, this appears to be related to %q. ", top.Title)

	if sentences := leadSentences(top.Excerpt, 3); len(sentences) > 0 {
		b.WriteString(strings.Join(sentences, ". "))
		b.WriteString(". ")
	}

	module := top.Category
	if module == "" {
		module = "relevant"
	}
	fmt.Fprintf(&b, "\n\nI'd recommend the following steps:\n1. Navigate to the %s module in %s\n", module, c.opts.ProductName)
	b.WriteString("2. Check your current configuration under Admin > Module Settings\n")
	b.WriteString("3. If the issue persists, I can escalate this to our specialist team.\n\n")
	b.WriteString("Is there anything else I can help with?")
	return b.String()
}

func (c *Catalog) clarifyingReply() string {
	return fmt.Sprintf("Thank you for contacting %s support. I understand you're experiencing an issue. Let me look into this for you.\n\n"+
		"Could you provide a few more details?\n"+
		"- Which %s module were you using?\n"+
		"- When did this issue first occur?\n"+
		"- Are other users at your property experiencing the same issue?\n\n"+
		"This will help me identify the right solution for you.", c.opts.ProductName, c.opts.ProductName)
}

// leadSentences returns up to n sentences longer than 20 characters.
func leadSentences(text string, n int) []string {
	var out []string
	for _, s := range sentenceBreak.Split(text, -1) {
		if len(s) <= 20 {
			continue
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}
