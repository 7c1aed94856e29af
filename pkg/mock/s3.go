package mock

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io/ioutil"
	"sync"

	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
)

// S3Client is mock S3 client. Objects are kept per client, not globally.
type S3Client struct {
	Region  string
	Objects map[string]map[string][]byte

	mutex sync.Mutex
}

// NewS3Mock returns S3ClientFactory and mock.S3Client that S3ClientFactory returns
func NewS3Mock() (adaptor.S3ClientFactory, *S3Client) {
	client := &S3Client{
		Objects: make(map[string]map[string][]byte),
	}
	return func(region string) (adaptor.S3Client, error) {
		client.Region = region
		return client, nil
	}, client
}

// GetObject returns body decompressed by gzip because S3Store always compresses.
func (x *S3Client) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	bucket, ok := x.Objects[*input.Bucket]
	if !ok {
		return nil, errors.New(s3.ErrCodeNoSuchBucket)
	}

	raw, ok := bucket[*input.Key]
	if !ok {
		return nil, errors.New(s3.ErrCodeNoSuchKey)
	}

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	return &s3.GetObjectOutput{
		Body: gz,
	}, nil
}

func (x *S3Client) PutObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	raw, err := ioutil.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	x.mutex.Lock()
	defer x.mutex.Unlock()

	memBucket, ok := x.Objects[*input.Bucket]
	if !ok {
		memBucket = make(map[string][]byte)
		x.Objects[*input.Bucket] = memBucket
	}

	memBucket[*input.Key] = raw
	return &s3.PutObjectOutput{}, nil
}
