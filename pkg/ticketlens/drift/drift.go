// Package drift merges learning events, decay alerts and volume anomalies into a
// single newest-first timeline.
package drift

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/ticketlens/pkg/ticketlens/anomaly"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
	"github.com/cognicore/ticketlens/pkg/ticketlens/quality"
)

// Type classifies a timeline entry.
type Type string

const (
	TypeGapDetected      Type = "gap_detected"
	TypeArticleGenerated Type = "article_generated"
	TypeArticleDecayed   Type = "article_decayed"
	TypeSpikeDetected    Type = "spike_detected"
)

// Impact is the direction of an entry's effect on support health.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// Event is one timeline entry. ID is a ULID whose timestamp is At.
type Event struct {
	ID     string    `json:"id"`
	At     time.Time `json:"timestamp"`
	Type   Type      `json:"type"`
	Title  string    `json:"title"`
	Detail string    `json:"detail"`
	Impact Impact    `json:"impact"`
	Module string    `json:"module,omitempty"`
}

// Builder assembles timelines. It is safe for concurrent use.
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a timeline builder.
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Build merges the three inputs. Each learning event yields a gap entry, and an
// approved one also yields a publication entry one day later. Alerts and anomalous
// points are stamped with now.
func (b *Builder) Build(events []model.LearningEvent, alerts []quality.DecayAlert, points []anomaly.Point, now time.Time) []Event {
	var out []Event

	for _, e := range events {
		detail := e.DetectedGap
		if detail == "" {
			detail = e.DraftSummary
		}
		out = append(out, b.event(e.At, TypeGapDetected, "Knowledge gap detected", detail, ImpactNegative, ""))
		if e.Approved() {
			out = append(out, b.event(e.At.Add(24*time.Hour), TypeArticleGenerated, "AI article approved and published", e.DraftSummary, ImpactPositive, ""))
		}
	}

	for _, a := range alerts {
		title := fmt.Sprintf("Article quality decayed to %.0f", a.CurrentScore)
		out = append(out, b.event(now, TypeArticleDecayed, title, a.Title, ImpactNegative, ""))
	}

	for _, p := range points {
		if !p.IsAnomaly {
			continue
		}
		label, impact := "Drop", ImpactNeutral
		if p.Direction == anomaly.DirectionSpike {
			label, impact = "Spike", ImpactNegative
		}
		detail := fmt.Sprintf("Z-score: %s (%d tickets vs %s avg)", formatNumber(p.ZScore), p.Count, formatNumber(p.Mean))
		out = append(out, b.event(now, TypeSpikeDetected, label+" in "+p.Category, detail, impact, p.Category))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.After(out[j].At)
	})
	return out
}

func (b *Builder) event(at time.Time, typ Type, title, detail string, impact Impact, module string) Event {
	return Event{
		ID:     b.newID(at),
		At:     at,
		Type:   typ,
		Title:  title,
		Detail: detail,
		Impact: impact,
		Module: module,
	}
}

func (b *Builder) newID(at time.Time) string {
	ms := uint64(0)
	if !at.IsZero() && at.Unix() > 0 {
		ms = ulid.Timestamp(at)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return ulid.MustNew(ms, b.entropy).String()
}

// formatNumber prints the shortest decimal form, so 20 stays "20" and 3.25 stays "3.25".
func formatNumber(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
