package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ohmyjons/simple-elt/internal/logging"
	"github.com/ohmyjons/simple-elt/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver_RecordsStages(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRunMetrics(reg)
	o := NewObserver(m)

	o.StageStarted("run", "extract")
	o.StageFinished("run", pipeline.StageReport{
		Name: "extract", State: pipeline.StateSucceeded, Attempts: 1,
		Duration: 1500 * time.Millisecond, Artifact: pipeline.Artifact{Rows: 700},
	})
	o.StageFinished("run", pipeline.StageReport{
		Name: "load", State: pipeline.StateFailed, Attempts: 2, Duration: time.Second,
	})

	require.Equal(t, 1.5, testutil.ToFloat64(m.StageDuration.WithLabelValues("extract")))
	require.Equal(t, 700.0, testutil.ToFloat64(m.StageRows.WithLabelValues("extract")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StageSuccess.WithLabelValues("extract")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.StageAttempts.WithLabelValues("load")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.StageSuccess.WithLabelValues("load")))
}

func TestObserver_RecordsRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRunMetrics(reg)
	o := NewObserver(m)

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	o.RunFinished(&pipeline.Report{State: pipeline.StateSucceeded, StartedAt: start, FinishedAt: start.Add(90 * time.Second)})

	require.Equal(t, 1.0, testutil.ToFloat64(m.RunSuccess))
	require.Equal(t, 90.0, testutil.ToFloat64(m.RunDuration))
	require.Equal(t, float64(start.Add(90*time.Second).Unix()), testutil.ToFloat64(m.LastCompletion))

	o.RunFinished(&pipeline.Report{State: pipeline.StateFailed, StartedAt: start, FinishedAt: start})
	require.Equal(t, 0.0, testutil.ToFloat64(m.RunSuccess))
}

func TestNewRunMetrics_RegistersFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRunMetrics(reg)
	m.StageRows.WithLabelValues("load").Set(1)

	n, err := testutil.GatherAndCount(reg, "elt_stage_rows", "elt_run_success")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPusher_PutsToGateway(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := NewRunMetrics(reg)
	m.RunSuccess.Set(1)

	p := NewPusher(srv.URL, reg, "sales.financial_sample", logging.NewNullLogger())
	require.NoError(t, p.Push(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasPrefix(path, "/metrics/job/simple_elt/table/"), path)
	assert.Contains(t, body, "elt_run_success")
}

func TestPusher_ReportsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	NewRunMetrics(reg).RunSuccess.Set(0)

	err := NewPusher(srv.URL, reg, "", logging.NewNullLogger()).Push(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
