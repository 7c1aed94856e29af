package mock

import (
	"sync"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
)

// Repository is mock of adaptor.Repository
type Repository struct {
	data  map[threatgraph.RunID]threatgraph.RunRecord
	mutex sync.Mutex
}

// NewRepository is constructor of mock.Repository
func NewRepository() adaptor.Repository {
	return &Repository{
		data: make(map[threatgraph.RunID]threatgraph.RunRecord),
	}
}

// PutRun puts a copy of run to memory
func (x *Repository) PutRun(run *threatgraph.RunRecord) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.data[run.RunID] = *run
	return nil
}

// GetRun fetches run from memory. It returns nil if not found.
func (x *Repository) GetRun(runID threatgraph.RunID) (*threatgraph.RunRecord, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	run, ok := x.data[runID]
	if !ok {
		return nil, nil
	}
	return &run, nil
}
