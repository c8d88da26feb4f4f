package quality

import "sort"

// AlertSeverity grades a decay alert.
type AlertSeverity string

const (
	AlertCritical AlertSeverity = "critical"
	AlertWarning  AlertSeverity = "warning"
)

// DecayAlert flags an article whose quality has degraded.
type DecayAlert struct {
	ArticleID         string        `json:"kb_article_id"`
	Title             string        `json:"title"`
	CurrentScore      float64       `json:"current_score"`
	DecayRate         float64       `json:"decay_rate"`
	Severity          AlertSeverity `json:"severity"`
	RecommendedAction string        `json:"recommended_action"`
}

// DecayOptions holds the alert thresholds.
type DecayOptions struct {
	OverallBelow   float64 `yaml:"overall_below"`
	FreshnessBelow float64 `yaml:"freshness_below"`
	CriticalBelow  float64 `yaml:"critical_below"`
	Limit          int     `yaml:"limit"`
}

// DefaultDecayOptions returns the standard alert thresholds.
func DefaultDecayOptions() DecayOptions {
	return DecayOptions{
		OverallBelow:   65,
		FreshnessBelow: 40,
		CriticalBelow:  50,
		Limit:          30,
	}
}

func (o DecayOptions) withDefaults() DecayOptions {
	d := DefaultDecayOptions()
	if o.OverallBelow <= 0 {
		o.OverallBelow = d.OverallBelow
	}
	if o.FreshnessBelow <= 0 {
		o.FreshnessBelow = d.FreshnessBelow
	}
	if o.CriticalBelow <= 0 {
		o.CriticalBelow = d.CriticalBelow
	}
	if o.Limit <= 0 {
		o.Limit = d.Limit
	}
	return o
}

// DecayAlerts selects scores below the overall or freshness threshold, ordered from
// worst to best and capped at opts.Limit.
func DecayAlerts(scores []Score, opts DecayOptions) []DecayAlert {
	opts = opts.withDefaults()

	var alerts []DecayAlert
	for _, s := range scores {
		if s.OverallScore >= opts.OverallBelow && s.FreshnessScore >= opts.FreshnessBelow {
			continue
		}
		a := DecayAlert{
			ArticleID:         s.ArticleID,
			Title:             s.Title,
			CurrentScore:      s.OverallScore,
			DecayRate:         decayRate(s.FreshnessScore),
			Severity:          AlertWarning,
			RecommendedAction: "Schedule review within 7 days",
		}
		if s.OverallScore < opts.CriticalBelow {
			a.Severity = AlertCritical
			a.RecommendedAction = "Immediate review and update required"
		}
		alerts = append(alerts, a)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CurrentScore < alerts[j].CurrentScore
	})
	if len(alerts) > opts.Limit {
		alerts = alerts[:opts.Limit]
	}
	return alerts
}

func decayRate(freshness float64) float64 {
	switch {
	case freshness < 30:
		return 1.5
	case freshness < 50:
		return 0.8
	default:
		return 0.3
	}
}
