package dataset

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

// number accepts a JSON number, a numeric string or null.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = number(f)
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// parseTime tries the layouts seen in exported support data. Unparseable values are
// treated as missing.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type ticketRecord struct {
	TicketNumber         string `json:"Ticket_Number"`
	ConversationID       string `json:"Conversation_ID"`
	CreatedAt            string `json:"Created_At"`
	ClosedAt             string `json:"Closed_At"`
	Status               string `json:"Status"`
	Priority             string `json:"Priority"`
	Tier                 number `json:"Tier"`
	Product              string `json:"Product"`
	Module               string `json:"Module"`
	Category             string `json:"Category"`
	CaseType             string `json:"Case_Type"`
	AccountName          string `json:"Account_Name"`
	PropertyName         string `json:"Property_Name"`
	PropertyCity         string `json:"Property_City"`
	PropertyState        string `json:"Property_State"`
	ContactRole          string `json:"Contact_Role"`
	Subject              string `json:"Subject"`
	Description          string `json:"Description"`
	Resolution           string `json:"Resolution"`
	RootCause            string `json:"Root_Cause"`
	Tags                 string `json:"Tags"`
	KBArticleID          string `json:"KB_Article_ID"`
	ScriptID             string `json:"Script_ID"`
	GeneratedKBArticleID string `json:"Generated_KB_Article_ID"`
}

func (r ticketRecord) id() string { return r.TicketNumber }

func (r ticketRecord) toModel() model.Ticket {
	return model.Ticket{
		Number:               r.TicketNumber,
		ConversationID:       r.ConversationID,
		CreatedAt:            parseTime(r.CreatedAt),
		ClosedAt:             parseTime(r.ClosedAt),
		Status:               r.Status,
		Priority:             model.Priority(r.Priority),
		Tier:                 float64(r.Tier),
		Product:              r.Product,
		Module:               r.Module,
		Category:             r.Category,
		CaseType:             r.CaseType,
		AccountName:          r.AccountName,
		PropertyName:         r.PropertyName,
		PropertyCity:         r.PropertyCity,
		PropertyState:        r.PropertyState,
		ContactRole:          r.ContactRole,
		Subject:              r.Subject,
		Description:          r.Description,
		Resolution:           r.Resolution,
		RootCause:            r.RootCause,
		Tags:                 r.Tags,
		KBArticleID:          r.KBArticleID,
		ScriptID:             r.ScriptID,
		GeneratedKBArticleID: r.GeneratedKBArticleID,
	}
}

type conversationRecord struct {
	TicketNumber   string `json:"Ticket_Number"`
	ConversationID string `json:"Conversation_ID"`
	Channel        string `json:"Channel"`
	Start          string `json:"Conversation_Start"`
	End            string `json:"Conversation_End"`
	CustomerRole   string `json:"Customer_Role"`
	AgentName      string `json:"Agent_Name"`
	Product        string `json:"Product"`
	Category       string `json:"Category"`
	IssueSummary   string `json:"Issue_Summary"`
	Transcript     string `json:"Transcript"`
	Sentiment      string `json:"Sentiment"`
}

func (r conversationRecord) id() string {
	if r.ConversationID != "" {
		return r.ConversationID
	}
	return r.TicketNumber
}

func (r conversationRecord) toModel() model.Conversation {
	return model.Conversation{
		TicketNumber:   r.TicketNumber,
		ConversationID: r.ConversationID,
		Channel:        r.Channel,
		Start:          parseTime(r.Start),
		End:            parseTime(r.End),
		CustomerRole:   r.CustomerRole,
		AgentName:      r.AgentName,
		Product:        r.Product,
		Category:       r.Category,
		IssueSummary:   r.IssueSummary,
		Transcript:     r.Transcript,
		Sentiment:      model.Sentiment(r.Sentiment),
	}
}

type articleRecord struct {
	ID         string `json:"KB_Article_ID"`
	Title      string `json:"Title"`
	Body       string `json:"Body"`
	Tags       string `json:"Tags"`
	Module     string `json:"Module"`
	Category   string `json:"Category"`
	CreatedAt  string `json:"Created_At"`
	UpdatedAt  string `json:"Updated_At"`
	Status     string `json:"Status"`
	SourceType string `json:"Source_Type"`
}

func (r articleRecord) id() string { return r.ID }

func (r articleRecord) toModel() model.KnowledgeArticle {
	return model.KnowledgeArticle{
		ID:         r.ID,
		Title:      r.Title,
		Body:       r.Body,
		Tags:       r.Tags,
		Module:     r.Module,
		Category:   r.Category,
		CreatedAt:  parseTime(r.CreatedAt),
		UpdatedAt:  parseTime(r.UpdatedAt),
		Status:     r.Status,
		SourceType: r.SourceType,
	}
}

type lineageRecord struct {
	ArticleID       string `json:"KB_Article_ID"`
	SourceType      string `json:"Source_Type"`
	SourceID        string `json:"Source_ID"`
	Relationship    string `json:"Relationship"`
	EvidenceSnippet string `json:"Evidence_Snippet"`
	EventTimestamp  string `json:"Event_Timestamp"`
}

func (r lineageRecord) id() string { return r.ArticleID }

func (r lineageRecord) toModel() model.KBLineage {
	return model.KBLineage{
		ArticleID:       r.ArticleID,
		SourceType:      r.SourceType,
		SourceID:        r.SourceID,
		Relationship:    r.Relationship,
		EvidenceSnippet: r.EvidenceSnippet,
		At:              parseTime(r.EventTimestamp),
	}
}

type learningEventRecord struct {
	ID                    string `json:"Event_ID"`
	TriggerTicketNumber   string `json:"Trigger_Ticket_Number"`
	TriggerConversationID string `json:"Trigger_Conversation_ID"`
	DetectedGap           string `json:"Detected_Gap"`
	ProposedArticleID     string `json:"Proposed_KB_Article_ID"`
	DraftSummary          string `json:"Draft_Summary"`
	FinalStatus           string `json:"Final_Status"`
	ReviewerRole          string `json:"Reviewer_Role"`
	EventTimestamp        string `json:"Event_Timestamp"`
}

func (r learningEventRecord) id() string { return r.ID }

func (r learningEventRecord) toModel() model.LearningEvent {
	return model.LearningEvent{
		ID:                    r.ID,
		TriggerTicketNumber:   r.TriggerTicketNumber,
		TriggerConversationID: r.TriggerConversationID,
		DetectedGap:           r.DetectedGap,
		ProposedArticleID:     r.ProposedArticleID,
		DraftSummary:          r.DraftSummary,
		FinalStatus:           r.FinalStatus,
		ReviewerRole:          r.ReviewerRole,
		At:                    parseTime(r.EventTimestamp),
	}
}

type scriptRecord struct {
	ID      string `json:"Script_ID"`
	Title   string `json:"Script_Title"`
	Purpose string `json:"Script_Purpose"`
	Inputs  string `json:"Script_Inputs"`
	Module  string `json:"Module"`
	Cat     string `json:"Category"`
	Source  string `json:"Source"`
	Text    string `json:"Script_Text_Sanitized"`
}

func (r scriptRecord) id() string { return r.ID }

func (r scriptRecord) toModel() model.Script {
	return model.Script{
		ID:       r.ID,
		Title:    r.Title,
		Purpose:  r.Purpose,
		Inputs:   r.Inputs,
		Module:   r.Module,
		Category: r.Cat,
		Source:   r.Source,
		Text:     r.Text,
	}
}

type questionRecord struct {
	ID          string `json:"Question_ID"`
	Source      string `json:"Source"`
	Product     string `json:"Product"`
	Category    string `json:"Category"`
	Module      string `json:"Module"`
	Difficulty  string `json:"Difficulty"`
	Text        string `json:"Question_Text"`
	AnswerType  string `json:"Answer_Type"`
	TargetID    string `json:"Target_ID"`
	TargetTitle string `json:"Target_Title"`
}

func (r questionRecord) id() string { return r.ID }

func (r questionRecord) toModel() model.Question {
	return model.Question{
		ID:          r.ID,
		Source:      r.Source,
		Product:     r.Product,
		Category:    r.Category,
		Module:      r.Module,
		Difficulty:  r.Difficulty,
		Text:        r.Text,
		AnswerType:  r.AnswerType,
		TargetID:    r.TargetID,
		TargetTitle: r.TargetTitle,
	}
}
