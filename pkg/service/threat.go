package service

import (
	"context"
	"time"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/graph"
)

// ThreatService writes threats into graph database and counts what was written.
type ThreatService struct {
	newSession adaptor.GraphSessionFactory
	mode       graph.Mode
	newRunID   func() threatgraph.RunID
	now        func() time.Time
}

// ThreatServiceOption customizes ThreatService.
type ThreatServiceOption func(svc *ThreatService)

// WithMode sets how threat nodes are written. Default is graph.ModeCreate.
func WithMode(mode graph.Mode) ThreatServiceOption {
	return func(svc *ThreatService) {
		svc.mode = mode
	}
}

// WithRunIDGenerator replaces RunID generator.
func WithRunIDGenerator(f func() threatgraph.RunID) ThreatServiceOption {
	return func(svc *ThreatService) {
		svc.newRunID = f
	}
}

// WithClock replaces current time function.
func WithClock(f func() time.Time) ThreatServiceOption {
	return func(svc *ThreatService) {
		svc.now = f
	}
}

func NewThreatService(newSession adaptor.GraphSessionFactory, options ...ThreatServiceOption) *ThreatService {
	svc := &ThreatService{
		newSession: newSession,
		mode:       graph.ModeCreate,
		newRunID:   threatgraph.NewRunID,
		now:        time.Now,
	}
	for _, opt := range options {
		opt(svc)
	}
	return svc
}

// Persist writes threats under one new RunID. See PersistRun for behavior.
func (x *ThreatService) Persist(ctx context.Context, threats []*threatgraph.Threat) (threatgraph.RunID, error) {
	run, err := x.PersistRun(ctx, threats)
	if run == nil {
		return "", err
	}
	return run.RunID, err
}

// PersistRun validates all threats first, then writes each threat in its own write
// transaction in order. A failed threat does not roll back threats already written
// and does not stop remaining threats. Returned RunRecord is not nil once RunID is
// generated, even with error, so that callers can inspect what was written.
//
// Threats are normalized in place with Threat.Normalize before writing, so the
// caller observes trimmed and deduplicated values after the call.
//
// Counts in RunRecord are taken from counters of committed transactions. In merge
// mode a threat merged into an existing node adds only its linked nodes.
func (x *ThreatService) PersistRun(ctx context.Context, threats []*threatgraph.Threat) (*threatgraph.RunRecord, error) {
	for i, threat := range threats {
		if threat == nil {
			return nil, errors.Wrap(threatgraph.ErrNilThreat, "Invalid threat").With("index", i)
		}
		if err := threat.Validate(); err != nil {
			return nil, errors.Wrap(err, "Invalid threat").With("index", i)
		}
	}

	run := &threatgraph.RunRecord{
		RunID:     x.newRunID(),
		CreatedAt: x.now().Unix(),
		Threats:   []string{},
		Failed:    []string{},
	}

	session, err := x.newSession(ctx)
	if err != nil {
		for _, threat := range threats {
			run.Failed = append(run.Failed, threat.Name)
		}
		return run, errors.Wrap(err, "Failed to open graph session").With("run_id", run.RunID)
	}
	defer func() {
		if err := session.Close(ctx); err != nil {
			logger.Warn().Err(err).Str("run_id", run.RunID.String()).Msg("Failed to close graph session")
		}
	}()

	for _, threat := range threats {
		threat.Normalize()
		plan := graph.PlanThreat(threat, run.RunID, x.mode)
		run.Threats = append(run.Threats, threat.Name)

		summary, err := session.ExecuteWrite(ctx, plan.Statements)
		if err != nil {
			logger.Error().Err(err).
				Str("run_id", run.RunID.String()).
				Str("threat", threat.Name).
				Msg("Failed to write threat")
			run.Failed = append(run.Failed, threat.Name)
			continue
		}

		run.ThreatCount += summary.ThreatsCreated()
		run.NodeCount += summary.NodesCreated
		run.EdgeCount += summary.RelationshipsCreated
	}

	logger.Info().
		Str("run_id", run.RunID.String()).
		Int("threats", run.ThreatCount).
		Int("nodes", run.NodeCount).
		Int("edges", run.EdgeCount).
		Int("failed", len(run.Failed)).
		Msg("Persisted threats")

	if !run.Succeeded() {
		return run, errors.New("Failed to persist some threats").
			With("run_id", run.RunID).With("failed", run.Failed)
	}

	return run, nil
}

// CountNodes counts nodes of kind tagged with runID. Empty kind counts all nodes.
func (x *ThreatService) CountNodes(ctx context.Context, runID threatgraph.RunID, kind graph.NodeKind) (int, error) {
	stmt, err := graph.CountNodes(runID, kind)
	if err != nil {
		return 0, err
	}
	return x.count(ctx, stmt)
}

// CountEdges counts edges of kind tagged with runID. Empty kind counts all edges.
func (x *ThreatService) CountEdges(ctx context.Context, runID threatgraph.RunID, kind graph.EdgeKind) (int, error) {
	stmt, err := graph.CountEdges(runID, kind)
	if err != nil {
		return 0, err
	}
	return x.count(ctx, stmt)
}

func (x *ThreatService) count(ctx context.Context, stmt *graph.Statement) (int, error) {
	session, err := x.newSession(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to open graph session")
	}
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(rows[0].Int("count")), nil
}

// Verification is result of comparing a run record with the graph.
type Verification struct {
	RunID           threatgraph.RunID `json:"run_id"`
	ExpectedNodes   int               `json:"expected_nodes"`
	ActualNodes     int               `json:"actual_nodes"`
	ExpectedEdges   int               `json:"expected_edges"`
	ActualEdges     int               `json:"actual_edges"`
	ExpectedThreats int               `json:"expected_threats"`
	Threats         int               `json:"threats"`
}

// OK returns true if expected counts match actual ones.
func (x *Verification) OK() bool {
	return x.ExpectedNodes == x.ActualNodes &&
		x.ExpectedEdges == x.ActualEdges &&
		x.ExpectedThreats == x.Threats
}

// Verify counts nodes and edges tagged with RunID of run and compares them with
// counts recorded in run.
func (x *ThreatService) Verify(ctx context.Context, run *threatgraph.RunRecord) (*Verification, error) {
	v := &Verification{
		RunID:           run.RunID,
		ExpectedNodes:   run.NodeCount,
		ExpectedEdges:   run.EdgeCount,
		ExpectedThreats: run.ThreatCount,
	}

	var err error
	if v.ActualNodes, err = x.CountNodes(ctx, run.RunID, ""); err != nil {
		return nil, err
	}
	if v.ActualEdges, err = x.CountEdges(ctx, run.RunID, ""); err != nil {
		return nil, err
	}
	if v.Threats, err = x.CountNodes(ctx, run.RunID, graph.NodeThreat); err != nil {
		return nil, err
	}

	return v, nil
}
