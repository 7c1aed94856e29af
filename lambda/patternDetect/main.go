package main

import (
	"context"

	"github.com/m-mizutani/threatgraph/pkg/lambda"
	"github.com/m-mizutani/threatgraph/pkg/logging"
)

var logger = logging.Logger

// Message is body of SNS message delivered directly or via SQS.
type Message struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Handler checks each text against stored techniques and indicators, and emits
// alert to Slack for a match.
func Handler(ctx context.Context, args *lambda.Arguments) error {
	records, err := args.DecapSNSMessages()
	if err != nil {
		return err
	}

	svc, err := args.PatternService(ctx)
	if err != nil {
		return err
	}
	alert := args.AlertService()

	for _, record := range records {
		var msg Message
		if err := record.Bind(&msg); err != nil {
			return err
		}

		match, err := svc.FindKnownPattern(ctx, msg.Text)
		if err != nil {
			return err
		}
		if match == nil {
			continue
		}

		logger.Info().Str("source", msg.Source).Interface("match", match).Msg("Detected known pattern")
		if alert != nil {
			if err := alert.EmitMatch(msg.Text, match); err != nil {
				return err
			}
		}
	}

	return nil
}

func main() {
	lambda.Run(Handler)
}
