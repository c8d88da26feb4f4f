// Package cli holds the flag wiring shared by the ticketlens commands.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/cognicore/ticketlens/internal/dataset"
	"github.com/cognicore/ticketlens/internal/llm"
	"github.com/cognicore/ticketlens/internal/logging"
	"github.com/cognicore/ticketlens/internal/settings"
	"github.com/cognicore/ticketlens/pkg/ticketlens"
	"github.com/cognicore/ticketlens/pkg/ticketlens/config"
	"github.com/cognicore/ticketlens/pkg/ticketlens/store"
	"github.com/cognicore/ticketlens/pkg/ticketlens/store/sqlite"
)

// Flags are the corpus and configuration flags common to every command. Values
// left unset fall back to the settings file and TICKETLENS_* environment.
type Flags struct {
	SettingsPath string
	EnvFile      string
	DataDir      string
	DBPath       string
	ConfigPath   string
	StoplistPath string
	LogLevel     string

	fs *pflag.FlagSet
}

// AddFlags registers the common flags on fs.
func (f *Flags) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.SettingsPath, "settings", "", "process settings file (yaml)")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "optional dotenv file")
	fs.StringVar(&f.DataDir, "data", "", "directory of JSON/JSONL corpus files")
	fs.StringVar(&f.DBPath, "db", "", "sqlite corpus (takes precedence over --data)")
	fs.StringVar(&f.ConfigPath, "config", "", "analysis config (yaml)")
	fs.StringVar(&f.StoplistPath, "stoplist", "", "stop-word list (yaml)")
	fs.StringVar(&f.LogLevel, "log-level", "", "debug, info, warn or error")
	f.fs = fs
}

// Resolve merges flags over the loaded settings. Flags win when set.
func (f *Flags) Resolve() (*settings.Settings, error) {
	s, err := settings.Load(f.SettingsPath, f.EnvFile)
	if err != nil {
		return nil, err
	}
	override := func(name string, dst *string, val string) {
		if f.fs != nil && f.fs.Changed(name) {
			*dst = val
		}
	}
	override("data", &s.DataDir, f.DataDir)
	override("db", &s.DBPath, f.DBPath)
	override("config", &s.ConfigPath, f.ConfigPath)
	override("stoplist", &s.StoplistPath, f.StoplistPath)
	override("log-level", &s.LogLevel, f.LogLevel)
	return s, nil
}

// Env is everything a command needs to run analyses.
type Env struct {
	Settings   *settings.Settings
	Logger     *logrus.Logger
	Components *config.Components
	Engine     *ticketlens.Engine

	closers []func() error
}

// Close releases the corpus source.
func (e *Env) Close() error {
	var first error
	for _, c := range e.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build resolves settings and constructs the logger, config, corpus source, optional
// LLM client and engine.
func (f *Flags) Build(ctx context.Context) (*Env, error) {
	s, err := f.Resolve()
	if err != nil {
		return nil, err
	}
	log := logging.New(s.LogLevel)

	loader := config.Loader{ConfigPath: s.ConfigPath, StoplistPath: s.StoplistPath}
	components, err := loader.Load()
	if err != nil {
		return nil, err
	}

	env := &Env{Settings: s, Logger: log, Components: components}

	var src store.Source
	if s.DBPath != "" {
		st, err := sqlite.OpenSQLite(ctx, s.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", s.DBPath, err)
		}
		env.closers = append(env.closers, st.Close)
		src = st
	} else {
		src = &dataset.Dir{Path: s.DataDir, Logger: log}
	}

	timeout, err := time.ParseDuration(s.LLM.Timeout)
	if err != nil {
		timeout = 0
	}
	chat, err := llm.New(llm.Config{
		Provider: s.LLM.Provider,
		BaseURL:  s.LLM.BaseURL,
		APIKey:   s.LLM.APIKey,
		Model:    s.LLM.Model,
		Timeout:  timeout,
	}, log)
	if err != nil {
		env.Close()
		return nil, err
	}

	opts := ticketlens.Options{
		Source:     src,
		Config:     &components.Config,
		Vectorizer: components.Vectorizer,
		Logger:     log,
	}
	if chat != nil {
		opts.Completer = chat
	}
	env.Engine = ticketlens.New(opts)
	return env, nil
}
