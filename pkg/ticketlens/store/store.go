// Package store defines the corpus contract shared by the in-memory, file and sqlite
// backends.
package store

import (
	"context"
	"fmt"

	"github.com/cognicore/ticketlens/pkg/ticketlens/internalerr"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

// Corpus is the full set of records the analyses run over. Slices keep source order.
type Corpus struct {
	Tickets        []model.Ticket
	Conversations  []model.Conversation
	Articles       []model.KnowledgeArticle
	Lineage        []model.KBLineage
	LearningEvents []model.LearningEvent
	Scripts        []model.Script
	Questions      []model.Question
}

// Source supplies a corpus.
type Source interface {
	Load(ctx context.Context) (*Corpus, error)
}

// Sink persists a corpus.
type Sink interface {
	Save(ctx context.Context, c *Corpus) error
}

// Clone returns a copy whose slices do not alias c.
func (c *Corpus) Clone() *Corpus {
	if c == nil {
		return &Corpus{}
	}
	return &Corpus{
		Tickets:        append([]model.Ticket(nil), c.Tickets...),
		Conversations:  append([]model.Conversation(nil), c.Conversations...),
		Articles:       append([]model.KnowledgeArticle(nil), c.Articles...),
		Lineage:        append([]model.KBLineage(nil), c.Lineage...),
		LearningEvents: append([]model.LearningEvent(nil), c.LearningEvents...),
		Scripts:        append([]model.Script(nil), c.Scripts...),
		Questions:      append([]model.Question(nil), c.Questions...),
	}
}

// Counts returns the number of records per collection.
func (c *Corpus) Counts() map[string]int {
	return map[string]int{
		"tickets":         len(c.Tickets),
		"conversations":   len(c.Conversations),
		"kb_articles":     len(c.Articles),
		"kb_lineage":      len(c.Lineage),
		"learning_events": len(c.LearningEvents),
		"scripts":         len(c.Scripts),
		"questions":       len(c.Questions),
	}
}

// Validate reports the first record missing its identifier.
func (c *Corpus) Validate() error {
	for i, t := range c.Tickets {
		if t.Number == "" {
			return fmt.Errorf("%w: ticket %d has no number", internalerr.ErrInvalidRecord, i)
		}
	}
	for i, a := range c.Articles {
		if a.ID == "" {
			return fmt.Errorf("%w: kb article %d has no id", internalerr.ErrInvalidRecord, i)
		}
	}
	for i, s := range c.Scripts {
		if s.ID == "" {
			return fmt.Errorf("%w: script %d has no id", internalerr.ErrInvalidRecord, i)
		}
	}
	for i, q := range c.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question %d has no id", internalerr.ErrInvalidRecord, i)
		}
	}
	for i, e := range c.LearningEvents {
		if e.ID == "" {
			return fmt.Errorf("%w: learning event %d has no id", internalerr.ErrInvalidRecord, i)
		}
	}
	for i, l := range c.Lineage {
		if l.ArticleID == "" {
			return fmt.Errorf("%w: lineage row %d has no article id", internalerr.ErrInvalidRecord, i)
		}
	}
	return nil
}
