package escalation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

func TestPredictHighAndLowRisk(t *testing.T) {
	tickets := []model.Ticket{
		{Number: "CS-1", Priority: model.PriorityCritical, Category: "Compliance", Tier: 3,
			Subject: "Outage: error posting HUD certification", Description: "Deadline tomorrow"},
		{Number: "CS-2", Priority: model.PriorityLow, Category: "Portal", Tier: 1,
			Subject: "How do I change the logo", Description: "Just curious"},
	}

	preds := Default().Predict(tickets, nil)

	require.Len(t, preds, 2)
	high := preds[0]
	assert.Equal(t, "CS-1", high.TicketNumber)
	assert.Equal(t, RiskHigh, high.Risk)
	assert.Equal(t, 1.0, high.Features.CategoryRisk)
	assert.Equal(t, 1.0, high.Features.SubjectLength)
	assert.Equal(t, []string{
		"Critical priority",
		"High-risk category (100% hist. escalation)",
		"Error keywords detected",
		"Critical language detected",
	}, high.Factors)
	assert.InDelta(t, sigmoid(-2.1+0.85*4+3.2+0.3+0.6+0.9), high.Probability, 1e-12)

	low := preds[1]
	assert.Equal(t, RiskLow, low.Risk)
	assert.Empty(t, low.Factors)
	assert.Zero(t, low.Features.CategoryRisk)
	assert.Zero(t, low.Features.SentimentScore)
}

func TestPredictProbabilityBounds(t *testing.T) {
	var tickets []model.Ticket
	for _, p := range []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCritical, "bogus"} {
		for _, tier := range []float64{0, 1, 2, 3} {
			tickets = append(tickets, model.Ticket{Priority: p, Tier: tier, Category: string(p), Subject: "crash " + string(p)})
		}
	}

	for _, pred := range Default().Predict(tickets, nil) {
		assert.Greater(t, pred.Probability, 0.0)
		assert.Less(t, pred.Probability, 1.0)
	}
}

func TestProbabilityMonotonicInPriority(t *testing.T) {
	risk := map[string]float64{"Billing": 0.2}
	base := model.Ticket{Category: "Billing", Subject: "Invoice totals look off", Description: "timeout"}

	prev := -1.0
	for _, p := range []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCritical} {
		tk := base
		tk.Priority = p
		preds := Default().Predict([]model.Ticket{tk}, risk)
		require.Len(t, preds, 1)
		assert.GreaterOrEqual(t, preds[0].Probability, prev, string(p))
		prev = preds[0].Probability
	}
}

func TestCategoryRiskOverrideAndDefault(t *testing.T) {
	tickets := []model.Ticket{
		{Number: "1", Category: "Known", Tier: 1},
		{Number: "2", Category: "Unknown", Tier: 3},
		{Number: "3", Category: "Zero", Tier: 1},
	}
	override := map[string]float64{"Known": 0.9, "Zero": 0}

	preds := Default().Predict(tickets, override)

	assert.Equal(t, 0.9, preds[0].Features.CategoryRisk)
	assert.Equal(t, 0.3, preds[1].Features.CategoryRisk, "absent categories use the default")
	assert.Equal(t, 0.0, preds[2].Features.CategoryRisk, "an explicit zero is kept")
	assert.Contains(t, preds[0].Factors, "High-risk category (90% hist. escalation)")
}

func TestCategoryRisk(t *testing.T) {
	risk := CategoryRisk([]model.Ticket{
		{Category: "A", Tier: 3},
		{Category: "A", Tier: 1},
		{Category: "A", Tier: 2},
		{Category: "A", Tier: 3},
		{Category: "B"},
	})

	assert.Equal(t, 0.5, risk["A"])
	assert.Equal(t, 0.0, risk["B"])
}

func TestRiskBuckets(t *testing.T) {
	p := Default()

	assert.Equal(t, RiskHigh, p.RiskFor(0.71))
	assert.Equal(t, RiskMedium, p.RiskFor(0.7))
	assert.Equal(t, RiskMedium, p.RiskFor(0.46))
	assert.Equal(t, RiskLow, p.RiskFor(0.45))
	assert.Equal(t, RiskLow, p.RiskFor(0))
}

func TestCustomModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = Model{Intercept: 0}
	cfg.Model.Priority = 1e-9
	cfg.ErrorKeywords = []string{"WIDGET"}

	p := NewPredictor(cfg)
	f := p.Features(model.Ticket{Subject: "widget jammed"}, nil, 0)

	assert.Equal(t, 1.0, f.HasErrorKeyword, "keywords are matched case-insensitively")
	assert.InDelta(t, 0.5, sigmoid(p.Logit(f)), 1e-6)
}

func TestSummarizeAndSort(t *testing.T) {
	preds := []Prediction{
		{TicketNumber: "a", Probability: 0.2, Risk: RiskLow},
		{TicketNumber: "b", Probability: 0.9, Risk: RiskHigh},
		{TicketNumber: "c", Probability: 0.5, Risk: RiskMedium},
	}

	s := Summarize(preds)
	SortByProbability(preds)

	assert.Equal(t, Summary{Total: 3, High: 1, Medium: 1, Low: 1, MeanProbability: 0.533}, s)
	assert.Equal(t, "b", preds[0].TicketNumber)
	assert.Equal(t, "a", preds[2].TicketNumber)
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, sigmoid(0))
	assert.True(t, math.Abs(sigmoid(10)+sigmoid(-10)-1) < 1e-12)
}
