// Package ticketlens wires the support-ticket analyses over a corpus source.
//
// The corpus, the clusters, the quality scores and the search catalog are computed
// once and cached; concurrent first callers share a single computation. Anomalies,
// predictions and the drift timeline are recomputed on every call.
package ticketlens

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/ticketlens/pkg/ticketlens/anomaly"
	"github.com/cognicore/ticketlens/pkg/ticketlens/cluster"
	"github.com/cognicore/ticketlens/pkg/ticketlens/config"
	"github.com/cognicore/ticketlens/pkg/ticketlens/drift"
	"github.com/cognicore/ticketlens/pkg/ticketlens/escalation"
	"github.com/cognicore/ticketlens/pkg/ticketlens/evaluation"
	"github.com/cognicore/ticketlens/pkg/ticketlens/internalerr"
	"github.com/cognicore/ticketlens/pkg/ticketlens/memo"
	"github.com/cognicore/ticketlens/pkg/ticketlens/model"
	"github.com/cognicore/ticketlens/pkg/ticketlens/narrative"
	"github.com/cognicore/ticketlens/pkg/ticketlens/quality"
	"github.com/cognicore/ticketlens/pkg/ticketlens/search"
	"github.com/cognicore/ticketlens/pkg/ticketlens/sentiment"
	"github.com/cognicore/ticketlens/pkg/ticketlens/similarity"
	"github.com/cognicore/ticketlens/pkg/ticketlens/stats"
	"github.com/cognicore/ticketlens/pkg/ticketlens/store"
)

// Options configures an Engine. Only Source is required.
type Options struct {
	Source     store.Source
	Config     *config.Config
	Vectorizer *similarity.Vectorizer
	Completer  narrative.Completer
	Logger     *logrus.Logger
	Now        func() time.Time
}

// Engine is the analysis facade.
type Engine struct {
	src       store.Source
	cfg       config.Config
	v         *similarity.Vectorizer
	log       *logrus.Logger
	now       func() time.Time
	predictor *escalation.Predictor
	analyzer  *narrative.Analyzer
	timeline  *drift.Builder

	corpus   *memo.Value[*store.Corpus]
	clusters *memo.Value[[]cluster.Cluster]
	scores   *memo.Value[[]quality.Score]
	catalog  *memo.Value[*search.Catalog]
}

// New creates an Engine. A nil Config uses config.Default.
func New(opts Options) *Engine {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	v := opts.Vectorizer
	if v == nil {
		v = similarity.Default()
	}

	narrOpts := cfg.Narrative
	narrOpts.Completer = opts.Completer
	narrOpts.Logger = log

	e := &Engine{
		src:       opts.Source,
		cfg:       cfg,
		v:         v,
		log:       log,
		now:       now,
		predictor: escalation.NewPredictor(cfg.Escalation),
		analyzer:  narrative.NewAnalyzer(narrOpts),
		timeline:  drift.New(),
	}

	e.corpus = memo.New(func(ctx context.Context) (*store.Corpus, error) {
		if e.src == nil {
			return nil, fmt.Errorf("no corpus source: %w", internalerr.ErrStoreUnavailable)
		}
		start := time.Now()
		c, err := e.src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
		e.log.WithFields(logrus.Fields{
			"counts":   c.Counts(),
			"duration": time.Since(start).String(),
		}).Info("corpus loaded")
		return c, nil
	})

	e.clusters = memo.New(func(ctx context.Context) ([]cluster.Cluster, error) {
		c, err := e.corpus.Get(ctx)
		if err != nil {
			return nil, err
		}
		out := cluster.Build(c.Tickets, e.cfg.Cluster)
		e.log.WithField("clusters", len(out)).Debug("clusters computed")
		return out, nil
	})

	e.scores = memo.New(func(ctx context.Context) ([]quality.Score, error) {
		c, err := e.corpus.Get(ctx)
		if err != nil {
			return nil, err
		}
		qo := e.cfg.Quality.Scoring
		if qo.Now == nil {
			qo.Now = e.now
		}
		out := quality.ScoreArticles(c.Articles, c.Tickets, c.Lineage, qo)
		e.log.WithField("articles", len(out)).Debug("quality scores computed")
		return out, nil
	})

	e.catalog = memo.New(func(ctx context.Context) (*search.Catalog, error) {
		c, err := e.corpus.Get(ctx)
		if err != nil {
			return nil, err
		}
		clusters, err := e.clusters.Get(ctx)
		if err != nil {
			return nil, err
		}
		return search.NewCatalog(e.v, c.Articles, clusters, e.cfg.Search), nil
	})

	return e
}

// Invalidate drops every cached result. The next call reloads the corpus.
func (e *Engine) Invalidate() {
	e.corpus.Invalidate()
	e.clusters.Invalidate()
	e.scores.Invalidate()
	e.catalog.Invalidate()
	e.log.Info("caches invalidated")
}

// Corpus returns the loaded corpus. Callers must not modify it.
func (e *Engine) Corpus(ctx context.Context) (*store.Corpus, error) {
	return e.corpus.Get(ctx)
}

// Clusters returns the root-cause clusters, largest first.
func (e *Engine) Clusters(ctx context.Context) ([]cluster.Cluster, error) {
	return e.clusters.Get(ctx)
}

// ClusterDetail is a cluster with its member tickets.
type ClusterDetail struct {
	Cluster cluster.Cluster `json:"cluster"`
	Members []model.Ticket  `json:"members"`
}

// Cluster returns one cluster and its members. Unknown ids yield ErrNotFound.
func (e *Engine) Cluster(ctx context.Context, id string) (ClusterDetail, error) {
	clusters, err := e.clusters.Get(ctx)
	if err != nil {
		return ClusterDetail{}, err
	}
	c, err := cluster.Find(clusters, id)
	if err != nil {
		return ClusterDetail{}, err
	}
	corpus, err := e.corpus.Get(ctx)
	if err != nil {
		return ClusterDetail{}, err
	}
	return ClusterDetail{Cluster: c, Members: cluster.Members(c, corpus.Tickets)}, nil
}

// QualityScores returns one score per knowledge article.
func (e *Engine) QualityScores(ctx context.Context) ([]quality.Score, error) {
	return e.scores.Get(ctx)
}

// DecayAlerts returns the articles due for review, worst first.
func (e *Engine) DecayAlerts(ctx context.Context) ([]quality.DecayAlert, error) {
	scores, err := e.scores.Get(ctx)
	if err != nil {
		return nil, err
	}
	return quality.DecayAlerts(scores, e.cfg.Quality.Decay), nil
}

// Anomalies runs the volume detector against the current time.
func (e *Engine) Anomalies(ctx context.Context) (anomaly.Result, error) {
	c, err := e.corpus.Get(ctx)
	if err != nil {
		return anomaly.Result{}, err
	}
	ao := e.cfg.Anomaly
	if ao.Now == nil {
		ao.Now = e.now
	}
	res := anomaly.Detect(c.Tickets, ao)
	if res.Synthetic {
		e.log.WithField("categories", len(res.Points)).Warn("no tickets inside the anomaly windows; using a synthetic baseline")
	}
	return res, nil
}

// Predictions is a scored batch plus its bucket summary.
type Predictions struct {
	Predictions []escalation.Prediction `json:"predictions"`
	Summary     escalation.Summary      `json:"summary"`
}

// Predict scores tickets for escalation risk, most likely first. With no batch the
// whole corpus is scored against its own category baseline. A supplied batch is
// scored against the corpus-wide baseline.
func (e *Engine) Predict(ctx context.Context, batch []model.Ticket) (Predictions, error) {
	c, err := e.corpus.Get(ctx)
	if err != nil {
		return Predictions{}, err
	}
	var preds []escalation.Prediction
	if len(batch) == 0 {
		preds = e.predictor.Predict(c.Tickets, nil)
	} else {
		preds = e.predictor.Predict(batch, escalation.CategoryRisk(c.Tickets))
	}
	escalation.SortByProbability(preds)
	return Predictions{Predictions: preds, Summary: escalation.Summarize(preds)}, nil
}

// Drift builds the knowledge timeline from learning events, decay alerts and
// current anomalies.
func (e *Engine) Drift(ctx context.Context) ([]drift.Event, error) {
	c, err := e.corpus.Get(ctx)
	if err != nil {
		return nil, err
	}
	alerts, err := e.DecayAlerts(ctx)
	if err != nil {
		return nil, err
	}
	anomalies, err := e.Anomalies(ctx)
	if err != nil {
		return nil, err
	}
	return e.timeline.Build(c.LearningEvents, alerts, anomalies.Points, e.now()), nil
}

// Search matches a free-text query against articles and clusters.
func (e *Engine) Search(ctx context.Context, query string) (search.Result, error) {
	cat, err := e.catalog.Get(ctx)
	if err != nil {
		return search.Result{}, err
	}
	return cat.Search(query)
}

// Copilot drafts an agent reply to a customer message.
func (e *Engine) Copilot(ctx context.Context, message string) (search.Suggestion, error) {
	cat, err := e.catalog.Get(ctx)
	if err != nil {
		return search.Suggestion{}, err
	}
	return cat.Copilot(message)
}

// Triage runs the live pipeline for one corpus ticket against the others.
func (e *Engine) Triage(ctx context.Context, ticketNumber string) (search.Triage, error) {
	c, err := e.corpus.Get(ctx)
	if err != nil {
		return search.Triage{}, err
	}
	cat, err := e.catalog.Get(ctx)
	if err != nil {
		return search.Triage{}, err
	}
	var (
		target model.Ticket
		found  bool
		pool   = make([]model.Ticket, 0, len(c.Tickets))
	)
	for _, t := range c.Tickets {
		if t.Number == ticketNumber && !found {
			target, found = t, true
			continue
		}
		pool = append(pool, t)
	}
	if !found {
		return search.Triage{}, fmt.Errorf("ticket %s: %w", ticketNumber, internalerr.ErrNotFound)
	}
	return cat.Triage(target, pool), nil
}

// Heatmap returns the module by sentiment grid over conversations.
func (e *Engine) Heatmap(ctx context.Context) (sentiment.Heatmap, error) {
	c, err := e.corpus.Get(ctx)
	if err != nil {
		return sentiment.Heatmap{}, err
	}
	return sentiment.Build(c.Conversations), nil
}

// Stats returns the overview dashboard.
func (e *Engine) Stats(ctx context.Context) (stats.Dashboard, error) {
	c, err := e.corpus.Get(ctx)
	if err != nil {
		return stats.Dashboard{}, err
	}
	return stats.Compute(stats.Input{
		Tickets:        c.Tickets,
		Conversations:  c.Conversations,
		Articles:       c.Articles,
		Scripts:        c.Scripts,
		LearningEvents: c.LearningEvents,
		Questions:      c.Questions,
	}), nil
}

// Evaluate runs the retrieval benchmark.
func (e *Engine) Evaluate(ctx context.Context) (evaluation.Report, error) {
	c, err := e.corpus.Get(ctx)
	if err != nil {
		return evaluation.Report{}, err
	}
	return evaluation.Run(ctx, e.v, evaluation.Input{
		Questions: c.Questions,
		Articles:  c.Articles,
		Scripts:   c.Scripts,
	}, e.cfg.Evaluation)
}

// Narrative explains the root cause of one cluster.
func (e *Engine) Narrative(ctx context.Context, clusterID string) (narrative.Analysis, error) {
	d, err := e.Cluster(ctx, clusterID)
	if err != nil {
		return narrative.Analysis{}, err
	}
	return e.analyzer.Analyze(ctx, d.Members), nil
}

// DraftArticle writes a KB article draft for one cluster and checks it for compliance.
func (e *Engine) DraftArticle(ctx context.Context, clusterID string) (narrative.Draft, error) {
	d, err := e.Cluster(ctx, clusterID)
	if err != nil {
		return narrative.Draft{}, err
	}
	return e.analyzer.DraftArticle(ctx, d.Cluster.Name, d.Members), nil
}
