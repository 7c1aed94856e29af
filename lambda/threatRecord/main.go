package main

import (
	"context"
	"time"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/lambda"
	"github.com/m-mizutani/threatgraph/pkg/logging"
	"github.com/m-mizutani/threatgraph/pkg/report"
)

var logger = logging.Logger

// Message is body of SQS message. Either Threats or Report is required.
type Message struct {
	Threats []*threatgraph.Threat `json:"threats,omitempty"`
	Report  string                `json:"report,omitempty"`
	Query   string                `json:"query,omitempty"`
}

func (x *Message) threats(now time.Time) ([]*threatgraph.Threat, error) {
	switch {
	case len(x.Threats) > 0:
		return x.Threats, nil
	case x.Report != "" || x.Query != "":
		return report.ParseOrUnknown(x.Report, x.Query, now), nil
	default:
		return nil, errors.New("Message has neither threats nor report")
	}
}

// Handler persists threats in each SQS message as one run.
func Handler(ctx context.Context, args *lambda.Arguments) error {
	records, err := args.DecapSQSEvent()
	if err != nil {
		return err
	}

	svc, err := args.IngestService(ctx)
	if err != nil {
		return err
	}

	for i, record := range records {
		var msg Message
		if err := record.Bind(&msg); err != nil {
			return err
		}

		threats, err := msg.threats(time.Now())
		if err != nil {
			return errors.Wrap(err, "Invalid message").With("i", i)
		}

		result, err := svc.Ingest(ctx, threats)
		if err != nil {
			return err
		}

		logger.Info().
			Str("run_id", result.Run.RunID.String()).
			Int("threats", result.Run.ThreatCount).
			Msg("Recorded threats")
	}

	return nil
}

func main() {
	lambda.Run(Handler)
}
