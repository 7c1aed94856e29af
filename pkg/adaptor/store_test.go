package adaptor_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	dir, err := ioutil.TempDir("", "threatgraph-store")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	store := adaptor.NewFileStore(filepath.Join(dir, "nested"))
	fpath, err := store.Put("a.txt", []byte("blue"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "a.txt"), fpath)

	raw, err := ioutil.ReadFile(fpath)
	require.NoError(t, err)
	assert.Equal(t, "blue", string(raw))
}

func TestS3Store(t *testing.T) {
	newS3, client := mock.NewS3Mock()
	store := adaptor.NewS3Store(newS3, "us-west-2", "my-bucket", "audit/2024")

	url, err := store.Put("a.json", []byte(`{"color":"orange"}`))
	require.NoError(t, err)
	assert.Equal(t, "s3://my-bucket/audit/2024/a.json.gz", url)
	assert.Equal(t, "us-west-2", client.Region)

	output, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String("my-bucket"),
		Key:    aws.String("audit/2024/a.json.gz"),
	})
	require.NoError(t, err)
	raw, err := ioutil.ReadAll(output.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"color":"orange"}`, string(raw))
}
