package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ohmyjons/simple-elt/internal/pipeline"
	"github.com/ohmyjons/simple-elt/internal/seed"
	"github.com/stretchr/testify/assert"
)

func sampleReport() *pipeline.Report {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &pipeline.Report{
		RunID:      "3f1c2a9e-0000-4000-8000-000000000001",
		State:      pipeline.StateFailed,
		StartedAt:  start,
		FinishedAt: start.Add(61500 * time.Millisecond),
		Stages: []pipeline.StageReport{
			{
				Name: "extract", State: pipeline.StateSucceeded, Attempts: 1, Duration: 1234 * time.Millisecond,
				Artifact: pipeline.Artifact{Location: "gs://staging/sales.csv", Rows: 700},
			},
			{
				Name: "load", State: pipeline.StateFailed, Attempts: 2, Duration: time.Minute,
				Err: errors.New("load sales.t: type mismatch"),
			},
		},
	}
}

func TestRunSummary_Plain(t *testing.T) {
	out := RunSummary(sampleReport(), false)

	assert.True(t, strings.HasPrefix(out, "run 3f1c2a9e-0000-4000-8000-000000000001 FAILED in 1m1.5s\n"), out)
	for _, want := range []string{"STAGE", "extract", "SUCCEEDED", "gs://staging/sales.csv (700 rows)", "1.2s", "load", "FAILED", "type mismatch"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "plain output must not contain escape codes")
	assert.NotContains(t, out, "╭")
}

func TestRunSummary_Styled(t *testing.T) {
	out := RunSummary(sampleReport(), true)

	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "extract")
	assert.Contains(t, out, "type mismatch")
}

func TestSeedSummary(t *testing.T) {
	out := SeedSummary(&seed.Result{
		Table: "public.financial_sample",
		Rows:  3,
		Columns: []seed.Column{
			{Name: "segment", Type: seed.TypeText},
			{Name: "units_sold", Type: seed.TypeDouble},
			{Name: "date", Type: seed.TypeDate},
		},
	}, false)

	assert.True(t, strings.HasPrefix(out, "seeded public.financial_sample with 3 rows\n"))
	assert.Contains(t, out, "units_sold")
	assert.Contains(t, out, "DOUBLE PRECISION")
	assert.Contains(t, out, "DATE")
}

func TestRound(t *testing.T) {
	assert.Equal(t, 12*time.Millisecond, round(12345*time.Microsecond))
	assert.Equal(t, 1200*time.Millisecond, round(1234*time.Millisecond))
}
