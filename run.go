package threatgraph

import (
	"time"

	"github.com/google/uuid"
)

// RunID tags every node and edge created by one persist call.
type RunID string

// NewRunID generates a random RunID.
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func (x RunID) String() string { return string(x) }

// RunRecord is summary of a persist call. NodeCount, EdgeCount and ThreatCount
// are nodes, edges and threat nodes created by the call.
type RunRecord struct {
	RunID       RunID    `json:"run_id" dynamo:"run_id"`
	CreatedAt   int64    `json:"created_at" dynamo:"created_at"`
	Threats     []string `json:"threats" dynamo:"threats"`
	Failed      []string `json:"failed" dynamo:"failed"`
	NodeCount   int      `json:"node_count" dynamo:"node_count"`
	EdgeCount   int      `json:"edge_count" dynamo:"edge_count"`
	ThreatCount int      `json:"threat_count" dynamo:"threat_count"`
}

// Succeeded returns true if no threat failed.
func (x *RunRecord) Succeeded() bool {
	return len(x.Failed) == 0
}

// CreatedTime returns CreatedAt as time.Time
func (x *RunRecord) CreatedTime() time.Time {
	return time.Unix(x.CreatedAt, 0)
}
