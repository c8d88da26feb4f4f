package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/cognicore/ticketlens/internal/dataset"
	"github.com/cognicore/ticketlens/internal/logging"
	"github.com/cognicore/ticketlens/pkg/ticketlens/store/sqlite"
)

type options struct {
	dataDir  string
	dbPath   string
	reset    bool
	logLevel string
}

func main() {
	var opts options
	flagSet := pflag.NewFlagSet("ticketlens-import", pflag.ContinueOnError)
	flagSet.StringVar(&opts.dataDir, "data", "", "directory of JSON/JSONL corpus files (required)")
	flagSet.StringVar(&opts.dbPath, "db", "", "sqlite database path (required)")
	flagSet.BoolVar(&opts.reset, "reset", false, "delete existing rows before importing")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	log := logging.New(opts.logLevel)
	if err := run(context.Background(), opts, log); err != nil {
		log.WithError(err).Fatal("import failed")
	}
}

func run(ctx context.Context, opts options, log *logrus.Logger) error {
	if opts.dataDir == "" {
		return fmt.Errorf("--data required")
	}
	if opts.dbPath == "" {
		return fmt.Errorf("--db required")
	}

	start := time.Now()
	corpus, err := (&dataset.Dir{Path: opts.dataDir, Logger: log}).Load(ctx)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"dir": opts.dataDir, "counts": corpus.Counts()}).Info("corpus read")

	st, err := sqlite.OpenSQLite(ctx, opts.dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.dbPath, err)
	}
	defer st.Close()

	if opts.reset {
		if err := st.Reset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		log.WithField("db", opts.dbPath).Info("existing rows deleted")
	}

	if err := st.Save(ctx, corpus); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"db":       opts.dbPath,
		"counts":   counts,
		"duration": time.Since(start).String(),
	}).Info("import complete")
	return nil
}
