package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDocumentFailureRate AlertType = "document_failure_rate"
	AlertMockReferenceRate   AlertType = "mock_reference_rate"
	AlertModelFallbackRate   AlertType = "model_fallback_rate"
)

// minSample is the fewest records a rate must cover before it can trigger
// an alert.
const minSample = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Check document failure rate.
	finished := snap.DocumentsComplete + snap.DocumentsFailed
	if finished >= minSample && snap.DocumentFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDocumentFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Document failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.DocumentFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.DocumentsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.DocumentFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.DocumentsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	// Check mock reference data rate.
	if a.cfg.MockRateThreshold > 0 && snap.AnalysesTotal >= minSample && snap.MockRate > a.cfg.MockRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertMockReferenceRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of analyses used mock reference data in last %dh (threshold %.1f%%)",
				snap.MockRate*100, snap.LookbackHours, a.cfg.MockRateThreshold*100,
			),
			Details: map[string]any{
				"mock_rate":      snap.MockRate,
				"threshold":      a.cfg.MockRateThreshold,
				"analyses_mock":  snap.AnalysesMock,
				"analyses_total": snap.AnalysesTotal,
			},
			Timestamp: now,
		})
	}

	// Check model fallback rate.
	if a.cfg.FallbackRateThreshold > 0 && snap.AnalysesTotal >= minSample && snap.FallbackRate > a.cfg.FallbackRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertModelFallbackRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"%.1f%% of analyses fell back to heuristic scans in last %dh (threshold %.1f%%)",
				snap.FallbackRate*100, snap.LookbackHours, a.cfg.FallbackRateThreshold*100,
			),
			Details: map[string]any{
				"fallback_rate":     snap.FallbackRate,
				"threshold":         a.cfg.FallbackRateThreshold,
				"analyses_fallback": snap.AnalysesFallback,
				"analyses_total":    snap.AnalysesTotal,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
