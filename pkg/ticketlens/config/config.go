package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/ticketlens/pkg/ticketlens/anomaly"
	"github.com/cognicore/ticketlens/pkg/ticketlens/cluster"
	"github.com/cognicore/ticketlens/pkg/ticketlens/escalation"
	"github.com/cognicore/ticketlens/pkg/ticketlens/evaluation"
	"github.com/cognicore/ticketlens/pkg/ticketlens/internalerr"
	"github.com/cognicore/ticketlens/pkg/ticketlens/narrative"
	"github.com/cognicore/ticketlens/pkg/ticketlens/quality"
	"github.com/cognicore/ticketlens/pkg/ticketlens/search"
)

// Tokenizer holds tokenizer settings. ExtraStopwords are dropped in addition to the
// stop list; KeepWords are removed from it.
type Tokenizer struct {
	MinLength      int      `yaml:"min_length"`
	ExtraStopwords []string `yaml:"extra_stopwords"`
	KeepWords      []string `yaml:"keep_words"`
}

// Quality groups scorer and decay alert settings.
type Quality struct {
	Scoring quality.Options      `yaml:"scoring"`
	Decay   quality.DecayOptions `yaml:"decay"`
}

// Config is the analysis configuration: thresholds, model tables and keyword sets.
type Config struct {
	Tokenizer  Tokenizer          `yaml:"tokenizer"`
	Cluster    cluster.Options    `yaml:"cluster"`
	Quality    Quality            `yaml:"quality"`
	Anomaly    anomaly.Options    `yaml:"anomaly"`
	Escalation escalation.Config  `yaml:"escalation"`
	Search     search.Options     `yaml:"search"`
	Evaluation evaluation.Options `yaml:"evaluation"`
	Narrative  narrative.Options  `yaml:"narrative"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tokenizer:  Tokenizer{MinLength: 3},
		Cluster:    cluster.DefaultOptions(),
		Quality:    Quality{Scoring: quality.DefaultOptions(), Decay: quality.DefaultDecayOptions()},
		Anomaly:    anomaly.DefaultOptions(),
		Escalation: escalation.DefaultConfig(),
		Search:     search.DefaultOptions(),
		Evaluation: evaluation.DefaultOptions(),
		Narrative:  narrative.DefaultOptions(),
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep their
// default values; lists present in the file replace the default list.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}
	check(c.Tokenizer.MinLength >= 0, "tokenizer.min_length must not be negative")
	check(c.Cluster.MinCategorySize >= 0 && c.Cluster.MinGroupSize >= 0, "cluster sizes must not be negative")
	check(c.Quality.Scoring.HalfLifeDays >= 0, "quality.scoring.half_life_days must not be negative")
	check(c.Anomaly.Windows == 0 || c.Anomaly.Windows >= 3, "anomaly.windows must be at least 3")
	check(c.Anomaly.Threshold >= 0, "anomaly.threshold must not be negative")
	check(c.Escalation.MediumThreshold < c.Escalation.HighThreshold || c.Escalation.HighThreshold == 0,
		"escalation.medium_threshold must be below escalation.high_threshold")
	check(c.Escalation.DefaultCategoryRisk >= 0 && c.Escalation.DefaultCategoryRisk <= 1,
		"escalation.default_category_risk must be within [0,1]")
	for name, v := range map[string]float64{
		"search.kb_threshold":             c.Search.KBThreshold,
		"search.cluster_threshold":        c.Search.ClusterThreshold,
		"search.copilot_threshold":        c.Search.CopilotThreshold,
		"search.triage_cluster_threshold": c.Search.TriageClusterThreshold,
		"search.triage_kb_threshold":      c.Search.TriageKBThreshold,
	} {
		check(v > 0 && v < 1, name+" must be within (0,1)")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, problems)
	}
	return nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
