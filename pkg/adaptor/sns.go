package adaptor

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/arn"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// SNSClient is used to publish run summaries.
type SNSClient interface {
	Publish(input *sns.PublishInput) (*sns.PublishOutput, error)
}

type SNSClientFactory func(region string) (SNSClient, error)

func NewSNSClient(region string) (SNSClient, error) {
	ssn, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create AWS session for SNS").With("region", region)
	}
	return sns.New(ssn), nil
}

// TopicRegion returns region part of SNS topic ARN such as
// arn:aws:sns:us-east-1:111122223333:my-topic
func TopicRegion(topicARN string) (string, error) {
	parsed, err := arn.Parse(topicARN)
	if err != nil {
		return "", errors.Wrap(err, "Invalid SNS topic ARN").With("ARN", topicARN)
	}
	if parsed.Service != "sns" || parsed.Region == "" {
		return "", errors.New("Not SNS topic ARN").With("ARN", topicARN)
	}
	return parsed.Region, nil
}
