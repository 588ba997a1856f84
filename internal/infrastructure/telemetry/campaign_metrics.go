package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Email outcomes recorded on nest_emails_total.
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// CampaignMetrics records notification evaluator activity. A nil receiver is
// a no-op so callers can run without a meter.
type CampaignMetrics struct {
	emails      *Counter
	runs        *Counter
	runDuration *Histogram
}

// NewCampaignMetrics creates the evaluator instruments on meter.
func NewCampaignMetrics(meter metric.Meter) (*CampaignMetrics, error) {
	emails, err := NewCounter(meter, "nest_emails_total", "Notification emails by category and outcome", "{email}")
	if err != nil {
		return nil, err
	}
	runs, err := NewCounter(meter, "nest_campaign_runs_total", "Evaluator runs by outcome", "{run}")
	if err != nil {
		return nil, err
	}
	runDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "nest_campaign_run_duration_seconds",
		Description: "Wall time of one evaluator run",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &CampaignMetrics{emails: emails, runs: runs, runDuration: runDuration}, nil
}

// RecordEmail counts one email decision for category.
func (m *CampaignMetrics) RecordEmail(ctx context.Context, category, outcome string) {
	if m == nil {
		return
	}
	m.emails.Inc(ctx, AttrCategory.String(category), AttrOutcome.String(outcome))
}

// RecordRun counts a finished run and its duration.
func (m *CampaignMetrics) RecordRun(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.Inc(ctx, AttrOutcome.String(outcome))
	m.runDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}
