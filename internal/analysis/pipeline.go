// Package analysis runs extracted drawing text through the full pipeline:
// reference snapshot, prompt assembly, model call, JSON repair, and
// gap-filling post-processing. Every stage has a local fallback, so a
// degraded analysis is always produced rather than an error.
package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/config"
	"github.com/planvector/drawing-cli/internal/drawing"
	"github.com/planvector/drawing-cli/internal/estimate"
	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/rag"
	"github.com/planvector/drawing-cli/internal/refdata"
	"github.com/planvector/drawing-cli/internal/resilience"
	"github.com/planvector/drawing-cli/internal/sanitize"
	"github.com/planvector/drawing-cli/pkg/anthropic"
)

// Pipeline analyzes drawings against the current reference snapshot.
type Pipeline struct {
	refs        *refdata.Service
	ai          anthropic.Client
	est         estimate.Estimator
	rates       *estimate.Rates
	cfg         config.AnthropicConfig
	retry       resilience.Policy
	maxRelevant int

	// now allows test injection of time.
	now func() time.Time
}

// NewPipeline wires the pipeline. A nil rates table uses the built-in
// defaults; maxRelevant <= 0 uses 5.
func NewPipeline(refs *refdata.Service, ai anthropic.Client, est estimate.Estimator, rates *estimate.Rates, cfg config.AnthropicConfig, maxRelevant int) *Pipeline {
	if rates == nil {
		rates = estimate.DefaultRates()
	}
	if maxRelevant <= 0 {
		maxRelevant = 5
	}
	retry := resilience.DefaultPolicy()
	retry.OnRetry = resilience.LogRetries("anthropic", "create message")
	return &Pipeline{
		refs:        refs,
		ai:          ai,
		est:         est,
		rates:       rates,
		cfg:         cfg,
		retry:       retry,
		maxRelevant: maxRelevant,
		now:         time.Now,
	}
}

// Analyze produces a structured analysis of the drawing text. Model and
// parse failures degrade to the default analysis; only context cancellation
// returns an error.
func (p *Pipeline) Analyze(ctx context.Context, docText string) (*model.Analysis, error) {
	snap := p.refs.Snapshot(ctx)
	rel := rag.FindRelevant(docText, snap, p.maxRelevant)

	system := anthropic.BuildCachedSystemBlocks(analysisSystemText + "\n\n" + rag.ContextString(snap))
	prompt := buildAnalysisPrompt(docText, rel)

	text, err := p.complete(ctx, system, prompt, "analysis")
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "analysis: canceled")
		}
		zap.L().Warn("analysis: model call failed, building fallback analysis", zap.Error(err))
		text = ""
	}

	result, fallback := parseAnalysis(text)
	result = ReplaceNAValues(result, p.est)
	if mats, ok := result["materials"].(map[string]any); ok {
		result["materials"] = ReplaceZeroMaterialValues(mats, result, p.rates)
	}

	return &model.Analysis{
		ID:        uuid.NewString(),
		Result:    result,
		Scan:      drawing.Scan(docText),
		IsMock:    snap.IsMock,
		Fallback:  fallback,
		ModelName: p.cfg.Model,
		CreatedAt: p.now().UTC(),
	}, nil
}

// Chat answers a free-text question grounded in the reference snapshot.
func (p *Pipeline) Chat(ctx context.Context, message string) (string, error) {
	snap := p.refs.Snapshot(ctx)
	system := anthropic.BuildCachedSystemBlocks(chatSystemText + "\n\n" + rag.ContextString(snap))

	text, err := p.complete(ctx, system, message, "chat")
	if err != nil {
		return "", eris.Wrap(err, "analysis: chat completion")
	}
	return text, nil
}

// complete sends one completion request, retrying transient failures.
func (p *Pipeline) complete(ctx context.Context, system []anthropic.SystemBlock, prompt, phase string) (string, error) {
	resp, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     p.cfg.Model,
			MaxTokens: int64(p.cfg.MaxTokens),
			System:    system,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(p.cfg.Model, phase)
	return responseText(resp), nil
}

// parseAnalysis repairs and decodes the model output, falling back to the
// default analysis. The second return reports whether the fallback was used.
func parseAnalysis(text string) (map[string]any, bool) {
	def := DefaultAnalysis("model output could not be parsed; values are estimated")
	parsed := sanitize.SafeJSONParse(text, def)
	m, ok := parsed.(map[string]any)
	if !ok {
		// Repairable JSON, but not an object.
		return def, true
	}
	return m, isFallback(m)
}

// isFallback reports whether a result carries the degraded-result marker.
func isFallback(result map[string]any) bool {
	eh, ok := result["error_handling"].(map[string]any)
	if !ok {
		return false
	}
	status, _ := eh["status"].(string)
	return status == "fallback"
}

// DefaultAnalysis is the deterministic degraded result. Every measurement
// is a sentinel so post-processing fills the gaps with estimates.
func DefaultAnalysis(note string) map[string]any {
	return map[string]any{
		"building_analysis": map[string]any{
			"total_floor_area": map[string]any{"internal": "N/A", "external": "N/A"},
			"dimensions":       map[string]any{"length": "N/A", "width": "N/A", "height": "N/A"},
			"storeys":          1,
		},
		"room_details":       []any{},
		"materials":          map[string]any{},
		"construction_tasks": []any{},
		"compliance_notes":   []any{},
		"summary":            "Automated fallback analysis; figures are estimates, not measurements from the drawing.",
		"error_handling": map[string]any{
			"status": "fallback",
			"note":   note,
		},
	}
}

// responseText concatenates the text blocks of a completion response.
func responseText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}
