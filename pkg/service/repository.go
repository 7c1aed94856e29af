package service

import (
	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// RunService records summaries of persist calls to the run ledger.
type RunService struct {
	repo adaptor.Repository
}

func NewRunService(repo adaptor.Repository) *RunService {
	return &RunService{
		repo: repo,
	}
}

func (x *RunService) PutRun(run *threatgraph.RunRecord) error {
	if run == nil || run.RunID == "" {
		return errors.New("RunID is required to put run record")
	}
	return x.repo.PutRun(run)
}

// GetRun returns nil without error if the run is not recorded.
func (x *RunService) GetRun(runID threatgraph.RunID) (*threatgraph.RunRecord, error) {
	return x.repo.GetRun(runID)
}
