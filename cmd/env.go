package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/analysis"
	"github.com/planvector/drawing-cli/internal/cost"
	"github.com/planvector/drawing-cli/internal/estimate"
	"github.com/planvector/drawing-cli/internal/extract"
	"github.com/planvector/drawing-cli/internal/refdata"
	"github.com/planvector/drawing-cli/internal/report"
	"github.com/planvector/drawing-cli/internal/store"
	anthropicpkg "github.com/planvector/drawing-cli/pkg/anthropic"
)

// analysisEnv holds the initialized store, reference service, pipeline, and
// report generator needed by the analyze/serve/refdata/report commands.
type analysisEnv struct {
	Store     store.Store
	Refs      *refdata.Service
	Pipeline  *analysis.Pipeline
	Extractor extract.Extractor
	Reports   *report.Generator
}

// Close releases resources held by the environment.
func (ae *analysisEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initEnv validates config for the given command mode, sets up the store,
// reference service, extractor, and report generator, and builds the analysis
// pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*analysisEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// The reference client stays nil in mock mode so nothing touches the
	// network. The service falls back to the on-disk store per category.
	var refClient refdata.Client
	if !cfg.Reference.UseMock {
		opts := []refdata.Option{
			refdata.WithTimeout(time.Duration(cfg.Reference.TimeoutSecs) * time.Second),
			refdata.WithRateLimit(cfg.Reference.RatePerSecond),
		}
		if cfg.Reference.Key != "" {
			opts = append(opts, refdata.WithAPIKey(cfg.Reference.Key))
		}
		refClient = refdata.NewClient(cfg.Reference.BaseURL, opts...)
	}
	refs := refdata.NewService(cfg.Reference, refClient, refdata.NewMockStore(cfg.Reference.MockDir))

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	var estimator estimate.Estimator
	if cfg.Estimate.Deterministic {
		estimator = estimate.NewFixed()
	} else {
		estimator = estimate.NewRandom(cfg.Estimate.Seed)
	}

	rates, err := estimate.LoadRates(cfg.Estimate.RatesPath)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load estimate rates")
	}

	book, err := cost.LoadBook(cfg.Pricing.BookPath)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load price book")
	}

	extractor, err := extract.NewExtractor(cfg.Extract)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init extractor")
	}

	zap.L().Info("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.Bool("mock_reference", cfg.Reference.UseMock),
		zap.Bool("deterministic", cfg.Estimate.Deterministic),
	)

	return &analysisEnv{
		Store:     st,
		Refs:      refs,
		Pipeline:  analysis.NewPipeline(refs, anthropicClient, estimator, rates, cfg.Anthropic, cfg.Reference.MaxRelevant),
		Extractor: extractor,
		Reports:   report.NewGenerator(cfg.Server.ReportDir, report.WithCostBook(book)),
	}, nil
}
