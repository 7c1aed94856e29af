package service

import (
	"context"
	"time"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// IngestServiceArguments has services used by IngestService. Only Threat is
// required, others are skipped when nil or empty.
type IngestServiceArguments struct {
	Threat *ThreatService
	Audit  *AuditService
	Run    *RunService
	SNS    *SNSService
	Alert  *AlertService

	RunTopicARN string
	Now         func() time.Time
}

// IngestService persists threats, saves audit outputs with the RunID, records the
// run, and notifies the run summary.
type IngestService struct {
	args *IngestServiceArguments
}

func NewIngestService(args *IngestServiceArguments) *IngestService {
	if args.Now == nil {
		args.Now = time.Now
	}
	return &IngestService{args: args}
}

// IngestResult is output of Ingest.
type IngestResult struct {
	Run   *threatgraph.RunRecord `json:"run"`
	Audit *AuditFiles            `json:"audit,omitempty"`
}

// Ingest runs pipeline for threats. A persistence failure of some threats does
// not stop recording and notification, and it is returned after them.
func (x *IngestService) Ingest(ctx context.Context, threats []*threatgraph.Threat) (*IngestResult, error) {
	if x.args.Threat == nil {
		return nil, errors.New("ThreatService is required for IngestService")
	}

	result := &IngestResult{}

	run, persistErr := x.args.Threat.PersistRun(ctx, threats)
	if run == nil {
		return nil, persistErr
	}
	result.Run = run

	if x.args.Audit != nil {
		files, err := x.args.Audit.Save(run.RunID, threats, x.args.Now())
		if err != nil {
			return result, err
		}
		result.Audit = files
	}

	if x.args.Run != nil {
		if err := x.args.Run.PutRun(run); err != nil {
			return result, err
		}
	}

	if x.args.SNS != nil && x.args.RunTopicARN != "" {
		if err := x.args.SNS.PublishRun(x.args.RunTopicARN, run); err != nil {
			return result, err
		}
	}

	if x.args.Alert != nil {
		if err := x.args.Alert.EmitRun(run); err != nil {
			return result, err
		}
	}

	return result, persistErr
}
