package lambda

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/logging"
)

// Handler is callback function type of lambda.Run()
type Handler func(ctx context.Context, args *Arguments) error

// Run sets up Arguments and logging tools, then invoke handler with Arguments
func Run(handler Handler) {
	lambda.Start(func(ctx context.Context, event interface{}) error {
		defer errors.FlushSentry()

		args, err := NewArguments(event)
		if err != nil {
			logError(err)
			return err
		}
		if err := errors.InitSentry(args.SentryDSN, args.SentryEnv); err != nil {
			logError(err)
		}
		defer args.Close(ctx)

		if err := Invoke(ctx, handler, args); err != nil {
			errors.EmitSentry(err)
			return err
		}
		return nil
	})
}

// Invoke validates args and calls handler. Error of handler is logged with values
// and stack trace.
func Invoke(ctx context.Context, handler Handler, args *Arguments) error {
	if err := args.Validate(); err != nil {
		logError(err)
		return err
	}

	if err := handler(ctx, args); err != nil {
		logError(err)
		return err
	}
	return nil
}

func logError(err error) {
	log := logging.Logger.Error()
	if e, ok := err.(*errors.Error); ok {
		for key, value := range e.Values {
			log = log.Str(key, fmt.Sprintf("%v", value))
		}
		log = log.Str("stacktrace", e.StackTrace())
	}
	log.Str("function", os.Getenv("AWS_LAMBDA_FUNCTION_NAME")).Msg(err.Error())
}
