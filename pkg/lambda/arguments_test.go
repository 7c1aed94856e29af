package lambda_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/m-mizutani/threatgraph/pkg/lambda"
	"github.com/m-mizutani/threatgraph/pkg/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMessage struct {
	Color string `json:"color"`
}

func TestDecapEvents(t *testing.T) {
	t.Run("SQS body is decapsulated", func(t *testing.T) {
		args := &lambda.Arguments{
			Event: events.SQSEvent{Records: []events.SQSMessage{
				{Body: `{"color":"blue"}`},
				{Body: `{"color":"orange"}`},
			}},
		}
		records, err := args.DecapSQSEvent()
		require.NoError(t, err)
		require.Equal(t, 2, len(records))

		var msg testMessage
		require.NoError(t, records[1].Bind(&msg))
		assert.Equal(t, "orange", msg.Color)
	})

	t.Run("SNS message in SQS body is decapsulated", func(t *testing.T) {
		raw, err := json.Marshal(events.SNSEntity{Message: `{"color":"red"}`})
		require.NoError(t, err)
		args := &lambda.Arguments{
			Event: events.SQSEvent{Records: []events.SQSMessage{{Body: string(raw)}}},
		}
		records, err := args.DecapSNSoverSQSEvent()
		require.NoError(t, err)
		require.Equal(t, 1, len(records))

		var msg testMessage
		require.NoError(t, records[0].Bind(&msg))
		assert.Equal(t, "red", msg.Color)
	})

	t.Run("SNS message is decapsulated", func(t *testing.T) {
		args := &lambda.Arguments{
			Event: events.SNSEvent{Records: []events.SNSEventRecord{
				{SNS: events.SNSEntity{Message: `{"color":"green"}`}},
			}},
		}
		records, err := args.DecapSNSEvent()
		require.NoError(t, err)
		require.Equal(t, 1, len(records))
		assert.Equal(t, `{"color":"green"}`, string(records[0]))
	})

	t.Run("SNS message is decapsulated from either SNS or SQS event", func(t *testing.T) {
		direct := &lambda.Arguments{
			Event: events.SNSEvent{Records: []events.SNSEventRecord{
				{EventSource: "aws:sns", SNS: events.SNSEntity{Message: `{"color":"green"}`}},
			}},
		}
		records, err := direct.DecapSNSMessages()
		require.NoError(t, err)
		require.Equal(t, 1, len(records))
		assert.Equal(t, `{"color":"green"}`, string(records[0]))

		rawEntity, err := json.Marshal(events.SNSEntity{Message: `{"color":"blue"}`})
		require.NoError(t, err)
		queued := &lambda.Arguments{
			Event: events.SQSEvent{Records: []events.SQSMessage{
				{EventSource: "aws:sqs", Body: string(rawEntity)},
			}},
		}
		records, err = queued.DecapSNSMessages()
		require.NoError(t, err)
		require.Equal(t, 1, len(records))
		assert.Equal(t, `{"color":"blue"}`, string(records[0]))
	})

	t.Run("broken record can not be bound", func(t *testing.T) {
		var msg testMessage
		assert.Error(t, lambda.EventRecord("{").Bind(&msg))
	})
}

func TestInvoke(t *testing.T) {
	ctx := context.Background()

	t.Run("handler is not called with invalid arguments", func(t *testing.T) {
		called := false
		args := &lambda.Arguments{Arguments: &arguments.Arguments{}}
		err := lambda.Invoke(ctx, func(ctx context.Context, args *lambda.Arguments) error {
			called = true
			return nil
		}, args)
		assert.Error(t, err)
		assert.False(t, called)
	})

	t.Run("handler is called with injected graph", func(t *testing.T) {
		called := false
		args := &lambda.Arguments{Arguments: &arguments.Arguments{
			NewGraphSession: mock.NewGraph().NewSession,
		}}
		err := lambda.Invoke(ctx, func(ctx context.Context, args *lambda.Arguments) error {
			called = true
			return nil
		}, args)
		require.NoError(t, err)
		assert.True(t, called)
	})
}
