package mock

import (
	"encoding/json"
	"sync"

	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
)

// SNSClient is mock SNS client. Published inputs are recorded in order.
type SNSClient struct {
	Region       string
	PublishInput []*sns.PublishInput

	// PublishError is returned by Publish if set. The input is not recorded.
	PublishError error

	mutex sync.Mutex
}

func (x *SNSClient) Publish(input *sns.PublishInput) (*sns.PublishOutput, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	if x.PublishError != nil {
		return nil, x.PublishError
	}
	x.PublishInput = append(x.PublishInput, input)
	return &sns.PublishOutput{}, nil
}

// BindMessage unmarshals message of i-th published input to v
func (x *SNSClient) BindMessage(i int, v interface{}) error {
	return json.Unmarshal([]byte(*x.PublishInput[i].Message), v)
}

// Attribute returns string message attribute of i-th published input.
func (x *SNSClient) Attribute(i int, key string) string {
	attr, ok := x.PublishInput[i].MessageAttributes[key]
	if !ok || attr.StringValue == nil {
		return ""
	}
	return *attr.StringValue
}

// NewSNSMock returns SNSClientFactory and mock.SNSClient that SNSClientFactory returns
func NewSNSMock() (adaptor.SNSClientFactory, *SNSClient) {
	client := &SNSClient{}
	return func(region string) (adaptor.SNSClient, error) {
		client.Region = region
		return client, nil
	}, client
}
