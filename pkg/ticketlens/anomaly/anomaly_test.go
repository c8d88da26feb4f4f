package anomaly

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

var now = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func opts() Options {
	o := DefaultOptions()
	o.Now = func() time.Time { return now }
	o.Rand = rand.New(rand.NewSource(7))
	return o
}

// weekly places counts[w] tickets of category in the middle of window w.
func weekly(category string, counts ...int) []model.Ticket {
	var out []model.Ticket
	for w, n := range counts {
		at := now.Add(-time.Duration(w)*7*24*time.Hour - 84*time.Hour)
		for i := 0; i < n; i++ {
			out = append(out, model.Ticket{Category: category, CreatedAt: at})
		}
	}
	return out
}

func TestDetectSpike(t *testing.T) {
	tickets := weekly("Payments", 60, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20)

	res := Detect(tickets, opts())

	require.Len(t, res.Points, 1)
	p := res.Points[0]
	assert.False(t, res.Synthetic)
	assert.Equal(t, "Payments", p.Category)
	assert.Equal(t, 60, p.Count)
	assert.Equal(t, 20.0, p.Mean)
	assert.Equal(t, 1.0, p.StdDev, "zero variance floors to one")
	assert.Equal(t, 40.0, p.ZScore)
	assert.True(t, p.IsAnomaly)
	assert.Equal(t, DirectionSpike, p.Direction)
	assert.Equal(t, 20, res.Baseline["Payments"])
	assert.Len(t, res.Anomalies(), 1)
}

func TestDetectConstantCountsIsNormal(t *testing.T) {
	tickets := weekly("Move-In", 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15)

	res := Detect(tickets, opts())

	require.Len(t, res.Points, 1)
	assert.Zero(t, res.Points[0].ZScore)
	assert.False(t, res.Points[0].IsAnomaly)
	assert.Equal(t, DirectionNormal, res.Points[0].Direction)
	assert.Empty(t, res.Anomalies())
}

func TestDetectSmallStdDevIsNotFloored(t *testing.T) {
	tickets := weekly("Portal", 11, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 11)

	res := Detect(tickets, opts())

	require.Len(t, res.Points, 1)
	p := res.Points[0]
	assert.Equal(t, 0.3, p.StdDev, "only a zero deviation is replaced by one")
	assert.InDelta(t, 3.16, p.ZScore, 0.01)
	assert.True(t, p.IsAnomaly)
	assert.Equal(t, DirectionSpike, p.Direction)
}

func TestDetectDrop(t *testing.T) {
	tickets := weekly("Renewals", 5, 20, 30, 20, 30, 20, 30, 20, 30, 20, 30, 20)

	res := Detect(tickets, opts())

	require.Len(t, res.Points, 1)
	assert.Equal(t, DirectionDrop, res.Points[0].Direction)
	assert.True(t, res.Points[0].IsAnomaly)
	assert.Less(t, res.Points[0].ZScore, -1.5)
}

func TestDetectSortsByAbsoluteZ(t *testing.T) {
	var tickets []model.Ticket
	tickets = append(tickets, weekly("Quiet", 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10)...)
	tickets = append(tickets, weekly("Drop", 0, 20, 30, 20, 30, 20, 30, 20, 30, 20, 30, 20)...)
	tickets = append(tickets, weekly("Spike", 60, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20)...)

	res := Detect(tickets, opts())

	require.Len(t, res.Points, 3)
	assert.Equal(t, "Spike", res.Points[0].Category)
	assert.Equal(t, "Drop", res.Points[1].Category)
	assert.Equal(t, "Quiet", res.Points[2].Category)
}

func TestDetectIgnoresTicketsOutsideWindows(t *testing.T) {
	tickets := weekly("Billing", 3, 3, 3)
	tickets = append(tickets,
		model.Ticket{Category: "Old", CreatedAt: now.AddDate(-1, 0, 0)},
		model.Ticket{Category: "Future", CreatedAt: now.Add(time.Hour)},
	)

	res := Detect(tickets, opts())

	require.Len(t, res.Points, 1)
	assert.Equal(t, "Billing", res.Points[0].Category)
}

func TestDetectSyntheticFallback(t *testing.T) {
	var tickets []model.Ticket
	for i := 0; i < 120; i++ {
		tickets = append(tickets, model.Ticket{Category: "Payments"})
	}
	for i := 0; i < 60; i++ {
		tickets = append(tickets, model.Ticket{Category: "Portal"})
	}

	res := Detect(tickets, opts())

	assert.True(t, res.Synthetic)
	require.Len(t, res.Points, 2)
	for _, p := range res.Points {
		assert.GreaterOrEqual(t, p.Count, 0)
		assert.Greater(t, p.StdDev, 0.0)
	}
	assert.InDelta(t, 10, res.Baseline["Payments"], 2)
	assert.InDelta(t, 5, res.Baseline["Portal"], 1)
}

func TestDetectSyntheticDisabled(t *testing.T) {
	o := opts()
	o.SyntheticFallback = false

	res := Detect([]model.Ticket{{Category: "Payments"}}, o)

	assert.False(t, res.Synthetic)
	assert.Empty(t, res.Points)
	assert.Empty(t, res.Baseline)
}

func TestDetectEmpty(t *testing.T) {
	res := Detect(nil, opts())

	assert.Empty(t, res.Points)
}
