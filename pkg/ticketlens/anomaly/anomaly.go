// Package anomaly flags categories whose current ticket volume departs from their
// recent weekly history.
package anomaly

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
)

// Direction of a volume change.
type Direction string

const (
	DirectionSpike  Direction = "spike"
	DirectionDrop   Direction = "drop"
	DirectionNormal Direction = "normal"
)

// Point is the anomaly verdict for one category.
type Point struct {
	Category  string    `json:"category"`
	Count     int       `json:"count"`
	Mean      float64   `json:"mean"`
	StdDev    float64   `json:"std_dev"`
	ZScore    float64   `json:"z_score"`
	IsAnomaly bool      `json:"is_anomaly"`
	Direction Direction `json:"direction"`
}

// Result carries the points and the rounded historical mean per category.
// Synthetic is set when the counts were generated rather than observed.
type Result struct {
	Points    []Point        `json:"anomalies"`
	Baseline  map[string]int `json:"baseline"`
	Synthetic bool           `json:"synthetic"`
}

// Anomalies returns only the points flagged as anomalous.
func (r Result) Anomalies() []Point {
	var out []Point
	for _, p := range r.Points {
		if p.IsAnomaly {
			out = append(out, p)
		}
	}
	return out
}

// Options controls window layout and the synthetic fallback.
type Options struct {
	WindowDays int     `yaml:"window_days"`
	Windows    int     `yaml:"windows"`
	Threshold  float64 `yaml:"threshold"`
	// SyntheticFallback generates a demo distribution when no ticket falls inside any
	// window. Results built this way have Synthetic set.
	SyntheticFallback bool `yaml:"synthetic_fallback"`

	Now  func() time.Time `yaml:"-"`
	Rand *rand.Rand       `yaml:"-"`
}

// DefaultOptions returns twelve weekly windows, a 1.5 sigma threshold and the
// synthetic fallback enabled.
func DefaultOptions() Options {
	return Options{
		WindowDays:        7,
		Windows:           12,
		Threshold:         1.5,
		SyntheticFallback: true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WindowDays <= 0 {
		o.WindowDays = d.WindowDays
	}
	if o.Windows < 3 {
		o.Windows = d.Windows
	}
	if o.Threshold <= 0 {
		o.Threshold = d.Threshold
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// series is an insertion-ordered map of category to per-window counts.
type series struct {
	order  []string
	counts map[string][]int
}

func newSeries() *series {
	return &series{counts: make(map[string][]int)}
}

func (s *series) bucket(category string, windows int) []int {
	c, ok := s.counts[category]
	if !ok {
		c = make([]int, windows)
		s.counts[category] = c
		s.order = append(s.order, category)
	}
	return c
}

// Detect counts tickets per category in trailing windows ending at now. Window 0 is the
// current one; windows 1..n-1 form the baseline. Points are sorted by descending |z|.
func Detect(tickets []model.Ticket, opts Options) Result {
	opts = opts.withDefaults()
	now := opts.Now()
	width := time.Duration(opts.WindowDays) * 24 * time.Hour

	s := newSeries()
	for w := 0; w < opts.Windows; w++ {
		start := now.Add(-time.Duration(w+1) * width)
		end := now.Add(-time.Duration(w) * width)
		for _, t := range tickets {
			if t.CreatedAt.IsZero() || t.CreatedAt.Before(start) || !t.CreatedAt.Before(end) {
				continue
			}
			s.bucket(t.CategoryOr(model.Uncategorized), opts.Windows)[w]++
		}
	}

	res := Result{Baseline: make(map[string]int)}
	if len(s.order) == 0 {
		if !opts.SyntheticFallback {
			return res
		}
		s = synthesize(tickets, opts)
		res.Synthetic = true
	}

	for _, cat := range s.order {
		p, mean := score(cat, s.counts[cat], opts.Threshold)
		res.Baseline[cat] = int(math.Round(mean))
		res.Points = append(res.Points, p)
	}
	sort.SliceStable(res.Points, func(i, j int) bool {
		return math.Abs(res.Points[i].ZScore) > math.Abs(res.Points[j].ZScore)
	})
	return res
}

func score(category string, counts []int, threshold float64) (Point, float64) {
	history := counts[1:]
	var sum float64
	for _, c := range history {
		sum += float64(c)
	}
	mean := sum / float64(len(history))
	var variance float64
	for _, c := range history {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= float64(len(history))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		stddev = 1
	}
	current := counts[0]
	z := (float64(current) - mean) / stddev

	p := Point{
		Category:  category,
		Count:     current,
		Mean:      roundTo(mean, 1),
		StdDev:    roundTo(stddev, 1),
		ZScore:    roundTo(z, 2),
		IsAnomaly: math.Abs(z) > threshold,
		Direction: DirectionNormal,
	}
	switch {
	case z > threshold:
		p.Direction = DirectionSpike
	case z < -threshold:
		p.Direction = DirectionDrop
	}
	return p, mean
}

// synthesize splits each category's total evenly across the windows with +/-20% noise
// and, with probability 0.4, a 1.5x spike in the current window.
func synthesize(tickets []model.Ticket, opts Options) *series {
	totals := newSeries()
	for _, t := range tickets {
		totals.bucket(t.CategoryOr(model.Uncategorized), 1)[0]++
	}

	s := newSeries()
	for _, cat := range totals.order {
		base := totals.counts[cat][0] / opts.Windows
		counts := s.bucket(cat, opts.Windows)
		for i := range counts {
			noise := int(math.Round((opts.Rand.Float64() - 0.5) * float64(base) * 0.4))
			spike := 0
			if i == 0 && opts.Rand.Float64() > 0.6 {
				spike = int(math.Round(float64(base) * 1.5))
			}
			counts[i] = max(0, base+noise+spike)
		}
	}
	return s
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
