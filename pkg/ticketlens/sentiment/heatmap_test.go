package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

func TestBuildHeatmap(t *testing.T) {
	convs := []model.Conversation{
		{Category: "Payments", Sentiment: model.SentimentFrustrated},
		{Category: "Payments", Sentiment: model.SentimentFrustrated},
		{Category: "Payments", Sentiment: model.SentimentFrustrated},
		{Category: "Payments", Sentiment: model.SentimentFrustrated},
		{Category: "Payments", Sentiment: model.SentimentRelieved},
		{Category: "Accounting", Sentiment: model.SentimentPositive},
		{Category: "", Sentiment: ""},
	}

	h := Build(convs)

	assert.Equal(t, []string{"Accounting", "General", "Payments"}, h.Modules)
	assert.Equal(t, []string{"Frustrated", "Negative", "Neutral", "Positive", "Relieved", "Curious"}, h.Sentiments)
	require.Len(t, h.Cells, 18)
	assert.Equal(t, "Accounting", h.Cells[0].Module)
	assert.Equal(t, "Frustrated", h.Cells[0].Sentiment)

	c, ok := h.Cell("Payments", "Frustrated")
	require.True(t, ok)
	assert.Equal(t, 4, c.Count)
	assert.Equal(t, 1.0, c.Intensity)

	c, _ = h.Cell("Payments", "Relieved")
	assert.Equal(t, 0.25, c.Intensity)

	c, _ = h.Cell("General", "Neutral")
	assert.Equal(t, 1, c.Count)

	_, ok = h.Cell("Nope", "Neutral")
	assert.False(t, ok)
}

func TestBuildHeatmapEmpty(t *testing.T) {
	h := Build(nil)

	assert.Empty(t, h.Cells)
	assert.Empty(t, h.Modules)
	assert.Len(t, h.Sentiments, 6)
}

func TestUnknownSentimentCountsTowardMax(t *testing.T) {
	h := Build([]model.Conversation{
		{Category: "Portal", Sentiment: "Angry"},
		{Category: "Portal", Sentiment: "Angry"},
		{Category: "Portal", Sentiment: model.SentimentNegative},
	})

	c, _ := h.Cell("Portal", "Negative")
	assert.Equal(t, 0.5, c.Intensity)
	_, ok := h.Cell("Portal", "Angry")
	assert.False(t, ok)
}
