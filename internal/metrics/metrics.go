// Package metrics records pipeline runs as Prometheus gauges and optionally
// pushes them to a Pushgateway when the run finishes.
package metrics

import (
	"context"
	"fmt"

	"github.com/ohmyjons/simple-elt/internal/pipeline"
	"github.com/ohmyjons/simple-elt/pkg/elt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job the run metrics are grouped under.
const JobName = "simple_elt"

type RunMetrics struct {
	StageDuration  *prometheus.GaugeVec
	StageRows      *prometheus.GaugeVec
	StageAttempts  *prometheus.GaugeVec
	StageSuccess   *prometheus.GaugeVec
	RunSuccess     prometheus.Gauge
	RunDuration    prometheus.Gauge
	LastCompletion prometheus.Gauge
}

func NewRunMetrics(reg prometheus.Registerer) *RunMetrics {
	factory := promauto.With(reg)

	return &RunMetrics{
		StageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "elt_stage_duration_seconds",
			Help: "Wall time of the stage's last run, all attempts included",
		}, []string{"stage"}),
		StageRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "elt_stage_rows",
			Help: "Rows extracted or loaded by the stage",
		}, []string{"stage"}),
		StageAttempts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "elt_stage_attempts",
			Help: "Attempts the stage needed in the last run",
		}, []string{"stage"}),
		StageSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "elt_stage_success",
			Help: "1 if the stage succeeded in the last run, 0 otherwise",
		}, []string{"stage"}),
		RunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "elt_run_success",
			Help: "1 if the last run succeeded, 0 otherwise",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "elt_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		LastCompletion: factory.NewGauge(prometheus.GaugeOpts{
			Name: "elt_run_last_completion_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// Observer updates RunMetrics from pipeline progress.
type Observer struct {
	metrics *RunMetrics
}

func NewObserver(m *RunMetrics) *Observer {
	return &Observer{metrics: m}
}

func (o *Observer) StageStarted(string, string) {}

func (o *Observer) StageFinished(_ string, r pipeline.StageReport) {
	o.metrics.StageDuration.WithLabelValues(r.Name).Set(r.Duration.Seconds())
	o.metrics.StageRows.WithLabelValues(r.Name).Set(float64(r.Artifact.Rows))
	o.metrics.StageAttempts.WithLabelValues(r.Name).Set(float64(r.Attempts))
	o.metrics.StageSuccess.WithLabelValues(r.Name).Set(boolGauge(r.State == pipeline.StateSucceeded))
}

func (o *Observer) RunFinished(r *pipeline.Report) {
	o.metrics.RunSuccess.Set(boolGauge(r.State == pipeline.StateSucceeded))
	o.metrics.RunDuration.Set(r.Duration().Seconds())
	o.metrics.LastCompletion.Set(float64(r.FinishedAt.Unix()))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Pusher sends a registry's metrics to a Pushgateway.
type Pusher struct {
	pusher *push.Pusher
	logger elt.Logger
}

// NewPusher pushes everything gathered from g under JobName, grouped by the
// pipeline's destination table so separate pipelines do not overwrite each other.
func NewPusher(url string, g prometheus.Gatherer, table string, logger elt.Logger) *Pusher {
	p := push.New(url, JobName).Gatherer(g)
	if table != "" {
		p = p.Grouping("table", table)
	}
	return &Pusher{pusher: p, logger: logger}
}

// Push replaces the group's metrics on the gateway.
func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	p.logger.Verbose("pushed run metrics to gateway")
	return nil
}
