package arguments_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/m-mizutani/threatgraph/pkg/graph"
	"github.com/m-mizutani/threatgraph/pkg/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, key, value string) {
	orig, ok := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if ok {
			os.Setenv(key, orig)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestNew(t *testing.T) {
	setEnv(t, "NEO4J_URI", "neo4j://localhost:7687")
	setEnv(t, "NEO4J_USER", "neo4j")
	setEnv(t, "NEO4J_PASSWORD", "password")
	setEnv(t, "GRAPH_WRITE_MODE", "merge")
	setEnv(t, "AUDIT_DIR", "/tmp/threatgraph")

	args, err := arguments.New()
	require.NoError(t, err)
	assert.Equal(t, "neo4j://localhost:7687", args.Neo4jURI)
	assert.Equal(t, "neo4j", args.Neo4jUser)
	assert.Equal(t, "password", args.Neo4jPassword)
	assert.Equal(t, "/tmp/threatgraph", args.AuditDir)
	require.NoError(t, args.Validate())

	mode, err := args.Mode()
	require.NoError(t, err)
	assert.Equal(t, graph.ModeMerge, mode)
	assert.NotNil(t, args.AuditService())
}

func TestValidate(t *testing.T) {
	t.Run("missing Neo4j password is error", func(t *testing.T) {
		args := &arguments.Arguments{Neo4jURI: "neo4j://localhost", Neo4jUser: "neo4j"}
		assert.Error(t, args.Validate())
	})

	t.Run("Neo4j settings are not required with injected graph", func(t *testing.T) {
		args := &arguments.Arguments{NewGraphSession: mock.NewGraph().NewSession}
		assert.NoError(t, args.Validate())
	})

	t.Run("unknown write mode is error", func(t *testing.T) {
		args := &arguments.Arguments{
			NewGraphSession: mock.NewGraph().NewSession,
			GraphWriteMode:  "upsert",
		}
		assert.Error(t, args.Validate())
	})

	t.Run("run table requires region", func(t *testing.T) {
		args := &arguments.Arguments{
			NewGraphSession: mock.NewGraph().NewSession,
			RunTableName:    "runs",
		}
		assert.Error(t, args.Validate())
	})
}

func TestServices(t *testing.T) {
	ctx := context.Background()

	t.Run("optional services are nil without settings", func(t *testing.T) {
		args := &arguments.Arguments{NewGraphSession: mock.NewGraph().NewSession}
		assert.Nil(t, args.AuditService())
		assert.Nil(t, args.AlertService())
		run, err := args.RunService()
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("threat service writes with configured mode", func(t *testing.T) {
		g := mock.NewGraph()
		args := &arguments.Arguments{
			NewGraphSession: g.NewSession,
			GraphWriteMode:  "merge",
		}
		svc, err := args.ThreatService(ctx)
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			_, err := svc.Persist(ctx, []*threatgraph.Threat{{Name: "same"}})
			require.NoError(t, err)
		}
		assert.Equal(t, 1, len(g.NodesOf(graph.NodeThreat)))
	})

	t.Run("ingest service uses injected graph", func(t *testing.T) {
		g := mock.NewGraph()
		args := &arguments.Arguments{NewGraphSession: g.NewSession}
		svc, err := args.IngestService(ctx)
		require.NoError(t, err)

		result, err := svc.Ingest(ctx, []*threatgraph.Threat{{Name: "X"}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Run.ThreatCount)
		assert.NoError(t, args.Close(ctx))
	})
}
