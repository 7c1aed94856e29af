package adaptor

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// ObjectStore saves named objects, e.g. audit outputs.
type ObjectStore interface {
	Put(name string, body []byte) (string, error)
}

// FileStore saves objects as files in Dir.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Put writes body to Dir/name and returns the file path.
func (x *FileStore) Put(name string, body []byte) (string, error) {
	if err := os.MkdirAll(x.Dir, 0755); err != nil {
		return "", errors.Wrap(err, "Failed to create directory").With("dir", x.Dir)
	}

	fpath := filepath.Join(x.Dir, name)
	if err := ioutil.WriteFile(fpath, body, 0644); err != nil {
		return "", errors.Wrap(err, "Failed to write file").With("path", fpath)
	}
	return fpath, nil
}

// S3Store saves gzip compressed objects to S3 bucket.
type S3Store struct {
	newS3  S3ClientFactory
	region string
	bucket string
	prefix string
}

func NewS3Store(newS3 S3ClientFactory, region, bucket, prefix string) *S3Store {
	return &S3Store{
		newS3:  newS3,
		region: region,
		bucket: bucket,
		prefix: prefix,
	}
}

// Put uploads body to s3://bucket/prefix/name.gz and returns the S3 URL.
func (x *S3Store) Put(name string, body []byte) (string, error) {
	client, err := x.newS3(x.region)
	if err != nil {
		return "", errors.Wrap(err, "Failed to create S3Client").With("region", x.region)
	}

	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	if _, err := gz.Write(body); err != nil {
		return "", errors.Wrap(err, "Failed to write gzip stream")
	}
	if err := gz.Close(); err != nil {
		return "", errors.Wrap(err, "Failed to close gzip stream")
	}

	key := path.Join(x.prefix, name+".gz")
	input := &s3.PutObjectInput{
		Bucket:          aws.String(x.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentEncoding: aws.String("gzip"),
		ContentType:     aws.String("application/x-gzip"),
	}
	if _, err := client.PutObject(input); err != nil {
		return "", errors.Wrap(err, "Failed to put object").With("bucket", x.bucket).With("key", key)
	}

	return "s3://" + x.bucket + "/" + key, nil
}
