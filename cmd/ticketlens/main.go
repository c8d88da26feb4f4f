package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/cognicore/ticketlens/internal/cli"
	"github.com/cognicore/ticketlens/pkg/ticketlens"
)

// command runs one analysis and returns the value printed as JSON.
type command struct {
	usage string
	args  int // required positional arguments; -1 joins all into one
	run   func(ctx context.Context, e *ticketlens.Engine, args []string, limit int) (any, error)
}

var commands = map[string]command{
	"clusters": {usage: "list root-cause clusters", run: func(ctx context.Context, e *ticketlens.Engine, _ []string, limit int) (any, error) {
		out, err := e.Clusters(ctx)
		return head(out, limit), err
	}},
	"cluster": {usage: "<cluster-id>  show one cluster with its tickets", args: 1, run: func(ctx context.Context, e *ticketlens.Engine, args []string, _ int) (any, error) {
		return e.Cluster(ctx, args[0])
	}},
	"quality": {usage: "score knowledge articles", run: func(ctx context.Context, e *ticketlens.Engine, _ []string, limit int) (any, error) {
		out, err := e.QualityScores(ctx)
		return head(out, limit), err
	}},
	"decay": {usage: "list articles due for review", run: func(ctx context.Context, e *ticketlens.Engine, _ []string, limit int) (any, error) {
		out, err := e.DecayAlerts(ctx)
		return head(out, limit), err
	}},
	"anomalies": {usage: "detect ticket volume spikes and drops", run: func(ctx context.Context, e *ticketlens.Engine, _ []string, _ int) (any, error) {
		return e.Anomalies(ctx)
	}},
	"predict": {usage: "escalation risk for every ticket", run: func(ctx context.Context, e *ticketlens.Engine, _ []string, limit int) (any, error) {
		out, err := e.Predict(ctx, nil)
		out.Predictions = head(out.Predictions, limit)
		return out, err
	}},
	"drift": {usage: "knowledge drift timeline", run: func(ctx context.Context, e *ticketlens.Engine, _ []string, limit int) (any, error) {
		out, err := e.Drift(ctx)
		return head(out, limit), err
	}},
	"search": {usage: "<query>  search articles and clusters", args: -1, run: func(ctx context.Context, e *ticketlens.Engine, args []string, _ int) (any, error) {
		return e.Search(ctx, args[0])
	}},
	"copilot": {usage: "<message>  draft an agent reply", args: -1, run: func(ctx context.Context, e *ticketlens.Engine, args []string, _ int) (any, error) {
		return e.Copilot(ctx, args[0])
	}},
	"triage": {usage: "<ticket-number>  run the live triage pipeline", args: 1, run: func(ctx context.Context, e *ticketlens.Engine, args []string, _ int) (any, error) {
		return e.Triage(ctx, args[0])
	}},
	"heatmap": {usage: "module by sentiment grid", run: func(ctx context.Context, e *ticketlens.Engine, _ []string, _ int) (any, error) {
		return e.Heatmap(ctx)
	}},
	"stats": {usage: "overview dashboard", run: func(ctx context.Context, e *ticketlens.Engine, _ []string, _ int) (any, error) {
		return e.Stats(ctx)
	}},
	"evaluate": {usage: "retrieval benchmark", run: func(ctx context.Context, e *ticketlens.Engine, _ []string, _ int) (any, error) {
		return e.Evaluate(ctx)
	}},
	"narrative": {usage: "<cluster-id>  root-cause narrative", args: 1, run: func(ctx context.Context, e *ticketlens.Engine, args []string, _ int) (any, error) {
		return e.Narrative(ctx, args[0])
	}},
	"draft": {usage: "<cluster-id>  draft a KB article with compliance check", args: 1, run: func(ctx context.Context, e *ticketlens.Engine, args []string, _ int) (any, error) {
		return e.DraftArticle(ctx, args[0])
	}},
}

func head[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printHelp(stderr)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		printHelp(stderr)
		return fmt.Errorf("unknown command %q", name)
	}

	var (
		flags  cli.Flags
		limit  int
		pretty bool
	)
	flagSet := pflag.NewFlagSet("ticketlens "+name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flags.AddFlags(flagSet)
	flagSet.IntVar(&limit, "limit", 0, "truncate list output (0 = all)")
	flagSet.BoolVar(&pretty, "pretty", true, "indent JSON output")
	if err := flagSet.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	pos := flagSet.Args()
	switch {
	case cmd.args == -1:
		if len(pos) == 0 {
			return fmt.Errorf("%s: missing argument: %s", name, cmd.usage)
		}
		pos = []string{strings.Join(pos, " ")}
	case len(pos) != cmd.args:
		return fmt.Errorf("%s: expected %d argument(s): %s", name, cmd.args, cmd.usage)
	}

	env, err := flags.Build(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	out, err := cmd.run(ctx, env.Engine, pos, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}

func printHelp(w io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "ticketlens: support ticket mining")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  ticketlens <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, n := range names {
		fmt.Fprintf(w, "  %-10s %s\n", n, commands[n].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common flags: --data DIR | --db FILE, --config FILE, --stoplist FILE, --settings FILE, --limit N")
}
