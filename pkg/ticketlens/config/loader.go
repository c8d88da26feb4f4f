// Package config loads analysis settings and the stop list from YAML.
package config

import (
	"fmt"

	"github.com/cognicore/ticketlens/pkg/ticketlens/ingest"
	"github.com/cognicore/ticketlens/pkg/ticketlens/similarity"
	"github.com/cognicore/ticketlens/pkg/ticketlens/stoplist"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	ConfigPath   string
	StoplistPath string
}

// Components holds all loaded configuration components
type Components struct {
	Config     Config
	Tokenizer  *ingest.Tokenizer
	Vectorizer *similarity.Vectorizer
}

// Load reads the configured files. Empty paths fall back to the built-in defaults.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Config: Default()}

	if l.ConfigPath != "" {
		cfg, err := Load(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = cfg
	}

	terms := stoplist.DefaultTerms()
	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		terms = sl.Terms
	}
	comp.Tokenizer = ingest.NewTokenizer(terms)
	if n := comp.Config.Tokenizer.MinLength; n > 0 {
		comp.Tokenizer.SetMinLength(n)
	}
	for _, w := range comp.Config.Tokenizer.ExtraStopwords {
		comp.Tokenizer.AddStopword(w)
	}
	for _, w := range comp.Config.Tokenizer.KeepWords {
		comp.Tokenizer.RemoveStopword(w)
	}
	comp.Vectorizer = similarity.New(comp.Tokenizer)

	return comp, nil
}
