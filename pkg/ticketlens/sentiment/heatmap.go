// Package sentiment aggregates conversation tone by module.
package sentiment

import (
	"sort"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

// Cell is one module x sentiment count. Intensity is count over the busiest cell.
type Cell struct {
	Module    string  `json:"module"`
	Sentiment string  `json:"sentiment"`
	Count     int     `json:"count"`
	Intensity float64 `json:"intensity"`
}

// Heatmap is a dense grid: one cell per module and column sentiment, module-major.
type Heatmap struct {
	Cells      []Cell   `json:"cells"`
	Modules    []string `json:"modules"`
	Sentiments []string `json:"sentiments"`
}

// Build tallies conversations by category and sentiment. Missing categories count as
// General and missing sentiments as Neutral. Modules are sorted; columns follow
// model.Sentiments. Labels outside those columns still count toward the maximum.
func Build(conversations []model.Conversation) Heatmap {
	grid := make(map[string]map[string]int)
	maxCount := 1
	for _, c := range conversations {
		mod := c.Category
		if mod == "" {
			mod = model.GeneralModule
		}
		sent := string(c.Sentiment)
		if sent == "" {
			sent = string(model.SentimentNeutral)
		}
		row, ok := grid[mod]
		if !ok {
			row = make(map[string]int)
			grid[mod] = row
		}
		row[sent]++
		if row[sent] > maxCount {
			maxCount = row[sent]
		}
	}

	modules := make([]string, 0, len(grid))
	for mod := range grid {
		modules = append(modules, mod)
	}
	sort.Strings(modules)

	sentiments := make([]string, len(model.Sentiments))
	for i, s := range model.Sentiments {
		sentiments[i] = string(s)
	}

	cells := make([]Cell, 0, len(modules)*len(sentiments))
	for _, mod := range modules {
		for _, sent := range sentiments {
			n := grid[mod][sent]
			cells = append(cells, Cell{
				Module:    mod,
				Sentiment: sent,
				Count:     n,
				Intensity: float64(n) / float64(maxCount),
			})
		}
	}
	return Heatmap{Cells: cells, Modules: modules, Sentiments: sentiments}
}

// Cell returns the cell for module and sentiment, or false when absent.
func (h Heatmap) Cell(module, sentiment string) (Cell, bool) {
	for _, c := range h.Cells {
		if c.Module == module && c.Sentiment == sentiment {
			return c, true
		}
	}
	return Cell{}, false
}
