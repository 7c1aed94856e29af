package service_test

import (
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/mock"
	"github.com/m-mizutani/threatgraph/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamoRunService(t *testing.T) {
	tableName, ok := os.LookupEnv("TEST_TABLE_NAME")
	if !ok {
		t.Skip("Skip test because TEST_TABLE_NAME is not set")
	}
	region, ok := os.LookupEnv("AWS_REGION")
	if !ok {
		t.Skip("Skip test because AWS_REGION is not set")
	}

	repo, err := adaptor.NewDynamoRepository(region, tableName)
	require.NoError(t, err)
	testRunService(t, service.NewRunService(repo))
}

func TestMockRunService(t *testing.T) {
	testRunService(t, service.NewRunService(mock.NewRepository()))
}

func testRunService(t *testing.T, svc *service.RunService) {
	t.Run("put and get run record", func(t *testing.T) {
		run := &threatgraph.RunRecord{
			RunID:       threatgraph.NewRunID(),
			CreatedAt:   time.Now().Unix(),
			Threats:     []string{"blue", "orange"},
			Failed:      []string{"orange"},
			NodeCount:   5,
			EdgeCount:   4,
			ThreatCount: 1,
		}
		require.NoError(t, svc.PutRun(run))

		got, err := svc.GetRun(run.RunID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, run.RunID, got.RunID)
		assert.Equal(t, run.Threats, got.Threats)
		assert.Equal(t, run.Failed, got.Failed)
		assert.Equal(t, 5, got.NodeCount)
		assert.Equal(t, 4, got.EdgeCount)
		assert.False(t, got.Succeeded())
	})

	t.Run("unknown run returns nil", func(t *testing.T) {
		got, err := svc.GetRun(threatgraph.NewRunID())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("run without ID is rejected", func(t *testing.T) {
		assert.Error(t, svc.PutRun(&threatgraph.RunRecord{}))
	})
}
