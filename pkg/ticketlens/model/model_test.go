package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriorityScore(t *testing.T) {
	assert.Equal(t, 4, PriorityCritical.Score())
	assert.Equal(t, 3, PriorityHigh.Score())
	assert.Equal(t, 2, PriorityMedium.Score())
	assert.Equal(t, 1, PriorityLow.Score())
	assert.Equal(t, 1, Priority("whatever").Score())
}

func TestTicketEscalated(t *testing.T) {
	assert.False(t, Ticket{}.Escalated(), "missing tier counts as tier 1")
	assert.False(t, Ticket{Tier: 2}.Escalated())
	assert.True(t, Ticket{Tier: 3}.Escalated())
	assert.True(t, Ticket{Tier: 3.4}.Escalated())
	assert.Equal(t, 1, Ticket{}.TierLevel())
	assert.Equal(t, 3, Ticket{Tier: 2.6}.TierLevel())
}

func TestTicketResolutionMinutes(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mins, ok := Ticket{CreatedAt: created, ClosedAt: created.Add(90 * time.Minute)}.ResolutionMinutes()
	assert.True(t, ok)
	assert.InDelta(t, 90, mins, 1e-9)

	_, ok = Ticket{CreatedAt: created}.ResolutionMinutes()
	assert.False(t, ok, "missing close time")

	_, ok = Ticket{CreatedAt: created, ClosedAt: created.Add(-time.Hour)}.ResolutionMinutes()
	assert.False(t, ok, "negative duration")
}

func TestLearningEventApproved(t *testing.T) {
	assert.True(t, LearningEvent{FinalStatus: "Approved"}.Approved())
	assert.True(t, LearningEvent{FinalStatus: "approved"}.Approved())
	assert.False(t, LearningEvent{FinalStatus: "Rejected"}.Approved())
}
