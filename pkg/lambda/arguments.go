package lambda

import (
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// Arguments are passed to Handler. It includes environment variables, received event and factories, etc.
type Arguments struct {
	*arguments.Arguments
	Event interface{}
}

// NewArguments binds environment variables and event. It is exported for tests of
// each Handler.
func NewArguments(event interface{}) (*Arguments, error) {
	base, err := arguments.New()
	if err != nil {
		return nil, err
	}
	return &Arguments{
		Arguments: base,
		Event:     event,
	}, nil
}

// BindEvent convert event that Lambda Function received to v via json marshal/unmarshal
func (x *Arguments) BindEvent(v interface{}) error {
	raw, err := json.Marshal(x.Event)
	if err != nil {
		return errors.Wrap(err, "Marshal lambda event")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, "Unmarshal lambda event")
	}
	return nil
}

// EventRecord is decapsulate event data (e.g. Body of SQS event)
type EventRecord []byte

// Bind unmarshal event record to object
func (x EventRecord) Bind(ev interface{}) error {
	if err := json.Unmarshal(x, ev); err != nil {
		return errors.Wrap(err, "Failed json.Unmarshal in DecodeEvent").With("raw", string(x))
	}
	return nil
}

// DecapSQSEvent decapsulate wrapped body data in SQSEvent
func (x *Arguments) DecapSQSEvent() ([]EventRecord, error) {
	var sqsEvent events.SQSEvent
	if err := x.BindEvent(&sqsEvent); err != nil {
		return nil, err
	}

	var output []EventRecord
	for _, record := range sqsEvent.Records {
		output = append(output, EventRecord(record.Body))
	}

	return output, nil
}

// DecapSNSoverSQSEvent decapsulate SNS message wrapped in body of SQSEvent
func (x *Arguments) DecapSNSoverSQSEvent() ([]EventRecord, error) {
	var sqsEvent events.SQSEvent
	if err := x.BindEvent(&sqsEvent); err != nil {
		return nil, err
	}

	var output []EventRecord
	for _, record := range sqsEvent.Records {
		var snsEntity events.SNSEntity
		if err := json.Unmarshal([]byte(record.Body), &snsEntity); err != nil {
			return nil, errors.Wrap(err, "Failed to unmarshal SNS entity in SQS msg").With("body", record.Body)
		}

		output = append(output, EventRecord(snsEntity.Message))
	}

	return output, nil
}

// DecapSNSEvent decapsulate wrapped body data in SNSEvent
func (x *Arguments) DecapSNSEvent() ([]EventRecord, error) {
	var snsEvent events.SNSEvent
	if err := x.BindEvent(&snsEvent); err != nil {
		return nil, err
	}

	var output []EventRecord
	for _, record := range snsEvent.Records {
		output = append(output, EventRecord(record.SNS.Message))
	}

	return output, nil
}

// DecapSNSMessages returns messages published to SNS topic. The event is either
// SNSEvent of direct subscription or SQSEvent of a queue subscribing the topic.
func (x *Arguments) DecapSNSMessages() ([]EventRecord, error) {
	var ev struct {
		Records []struct {
			// json.Unmarshal matches "eventSource" of SQS and "EventSource" of SNS
			EventSource string `json:"eventSource"`
		} `json:"Records"`
	}
	if err := x.BindEvent(&ev); err != nil {
		return nil, err
	}

	if len(ev.Records) > 0 && ev.Records[0].EventSource == "aws:sns" {
		return x.DecapSNSEvent()
	}
	return x.DecapSNSoverSQSEvent()
}
