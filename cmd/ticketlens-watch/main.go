package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/cognicore/ticketlens/internal/cli"
	"github.com/cognicore/ticketlens/pkg/ticketlens"
	"github.com/cognicore/ticketlens/pkg/ticketlens/quality"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func main() {
	var (
		flags    cli.Flags
		schedule string
		once     bool
	)
	flagSet := pflag.NewFlagSet("ticketlens-watch", pflag.ContinueOnError)
	flags.AddFlags(flagSet)
	flagSet.StringVar(&schedule, "schedule", "", `cron expression or descriptor, e.g. "0 * * * *" or "@every 15m"`)
	flagSet.BoolVar(&once, "once", false, "run a single scan and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := flags.Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer env.Close()
	log := env.Logger

	if once {
		if _, err := scan(ctx, env.Engine, log); err != nil {
			log.WithError(err).Error("scan failed")
			os.Exit(1)
		}
		return
	}

	if schedule == "" {
		schedule = env.Settings.Schedule
	}
	sched, err := scheduleParser.Parse(strings.TrimSpace(schedule))
	if err != nil {
		log.WithError(err).WithField("schedule", schedule).Fatal("invalid schedule")
	}
	log.WithField("schedule", schedule).Info("watch started")

	if err := watch(ctx, sched, env.Engine, log); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("watch stopped")
		os.Exit(1)
	}
	log.Info("watch stopped")
}

// watch runs a scan at every activation of sched until ctx is done. A failed
// scan is logged and the next activation still fires.
func watch(ctx context.Context, sched cron.Schedule, engine *ticketlens.Engine, log *logrus.Logger) error {
	for {
		now := time.Now()
		next := sched.Next(now)
		if next.IsZero() {
			return fmt.Errorf("schedule has no future activation")
		}
		log.WithField("next", next.Format(time.RFC3339)).Debug("waiting for next scan")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := scan(ctx, engine, log); err != nil {
			log.WithError(err).Error("scan failed")
		}
	}
}

// report summarizes one scan.
type report struct {
	Anomalies      int
	CriticalDecays int
	WarningDecays  int
}

// scan reloads the corpus and logs volume anomalies and articles due for review.
func scan(ctx context.Context, engine *ticketlens.Engine, log *logrus.Logger) (report, error) {
	engine.Invalidate()

	var r report
	res, err := engine.Anomalies(ctx)
	if err != nil {
		return r, fmt.Errorf("anomalies: %w", err)
	}
	for _, p := range res.Anomalies() {
		r.Anomalies++
		log.WithFields(logrus.Fields{
			"category":  p.Category,
			"count":     p.Count,
			"z_score":   p.ZScore,
			"direction": p.Direction,
			"synthetic": res.Synthetic,
		}).Warn("volume anomaly")
	}

	alerts, err := engine.DecayAlerts(ctx)
	if err != nil {
		return r, fmt.Errorf("decay alerts: %w", err)
	}
	for _, a := range alerts {
		entry := log.WithFields(logrus.Fields{
			"kb_article_id": a.ArticleID,
			"score":         a.CurrentScore,
			"severity":      a.Severity,
		})
		if a.Severity == quality.AlertCritical {
			r.CriticalDecays++
			entry.Warn(a.RecommendedAction)
		} else {
			r.WarningDecays++
			entry.Info(a.RecommendedAction)
		}
	}

	log.WithFields(logrus.Fields{
		"anomalies":       r.Anomalies,
		"critical_decays": r.CriticalDecays,
		"warning_decays":  r.WarningDecays,
	}).Info("scan complete")
	return r, nil
}
