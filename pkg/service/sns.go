package service

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// SNSService is accessor to SNS
type SNSService struct {
	newSNS adaptor.SNSClientFactory
}

// NewSNSService is constructor of SNSService
func NewSNSService(newSNS adaptor.SNSClientFactory) *SNSService {
	return &SNSService{
		newSNS: newSNS,
	}
}

func publishSNS(client adaptor.SNSClient, topicARN string, msg interface{}, attrs map[string]string) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "Fail to marshal message").With("msg", msg)
	}

	input := sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Message:  aws.String(string(raw)),
	}
	if len(attrs) > 0 {
		input.MessageAttributes = make(map[string]*sns.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			input.MessageAttributes[k] = &sns.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}
	resp, err := client.Publish(&input)
	if err != nil {
		return errors.Wrap(err, "Fail to publish SNS message").With("topic", topicARN)
	}

	logger.Trace().Interface("resp", resp).Msg("Published SNS message")

	return nil
}

// PublishRun sends run summary to the topic as JSON. run_id and status
// ("succeeded" or "failed") are set as message attributes for subscription
// filter policy.
func (x *SNSService) PublishRun(topicARN string, run *threatgraph.RunRecord) error {
	region, err := adaptor.TopicRegion(topicARN)
	if err != nil {
		return err
	}

	client, err := x.newSNS(region)
	if err != nil {
		return err
	}

	status := "succeeded"
	if !run.Succeeded() {
		status = "failed"
	}
	attrs := map[string]string{
		"run_id": run.RunID.String(),
		"status": status,
	}

	if err := publishSNS(client, topicARN, run, attrs); err != nil {
		return errors.Wrap(err, "Failed to publish run").With("run_id", run.RunID)
	}
	return nil
}
