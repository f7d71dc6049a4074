package pipeline

import (
	"context"

	"github.com/ohmyjons/simple-elt/internal/warehouse"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// LoadStage replaces the analytics table with the staged object.
type LoadStage struct {
	Warehouse warehouse.Warehouse
	Job       warehouse.LoadJob
	Logger    elt.Logger
}

func (s *LoadStage) Name() string { return "load" }

func (s *LoadStage) Phase() State { return StateLoading }

func (s *LoadStage) Run(ctx context.Context) (Artifact, error) {
	s.Logger.Verbose("load: %v from %s into %s (%s, %s)",
		s.Job.Objects, s.Job.Bucket, s.Job.Destination, s.Job.CreateDisposition, s.Job.WriteDisposition)

	res, err := s.Warehouse.Load(ctx, s.Job)
	if err != nil {
		return Artifact{}, err
	}

	s.Logger.Info("loaded %d rows into %s", res.Rows, res.Table)
	return Artifact{Location: res.Table.String(), Rows: res.Rows}, nil
}
