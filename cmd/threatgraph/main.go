package main

import (
	"context"
	"os"

	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/logging"
)

var logger = logging.Logger

func main() {
	args, err := arguments.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load environment variables")
	}
	if err := errors.InitSentry(args.SentryDSN, args.SentryEnv); err != nil {
		logger.Warn().Err(err).Msg("Sentry is disabled")
	}
	defer errors.FlushSentry()

	ctx := context.Background()
	err = NewCommand(args).ExecuteContext(ctx)
	args.Close(ctx)

	if err != nil {
		errors.EmitSentry(err)
		log := logger.Error()
		if e, ok := err.(*errors.Error); ok {
			log = log.Interface("values", e.Values).Str("stacktrace", e.StackTrace())
		}
		log.Msg(err.Error())
		os.Exit(1)
	}
}
