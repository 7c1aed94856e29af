package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/graph"
	"github.com/m-mizutani/threatgraph/pkg/mock"
	"github.com/m-mizutani/threatgraph/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternServiceWithMock(t *testing.T) {
	g := mock.NewGraph()
	testPatternService(t, g.NewSession)
	assert.Equal(t, g.Opened, g.Closed)
}

func TestPatternServiceWithNeo4j(t *testing.T) {
	testPatternService(t, newNeo4jSessionFactory(t))
}

func testPatternService(t *testing.T, newSession adaptor.GraphSessionFactory) {
	ctx := context.Background()
	technique := "technique-" + uuid.New().String()
	indicator := uuid.New().String() + ".example.com"

	_, err := service.NewThreatService(newSession).Persist(ctx, []*threatgraph.Threat{
		{
			Name: "pattern-" + uuid.New().String(),
			IOCs: threatgraph.IOCSet{Domains: []string{indicator}},
			TTPs: threatgraph.TTPSet{Techniques: []string{technique}},
		},
	})
	require.NoError(t, err)

	svc := service.NewPatternService(newSession)

	t.Run("text containing technique name verbatim matches", func(t *testing.T) {
		ok, err := svc.MatchesKnownPattern(ctx, "observed "+technique+" in the wild")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("text containing indicator matches IOC", func(t *testing.T) {
		match, err := svc.FindKnownPattern(ctx, "connection to "+indicator+" was blocked")
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, graph.NodeIOC, match.Label)
		assert.Equal(t, indicator, match.Name)
	})

	t.Run("unrelated text does not match", func(t *testing.T) {
		ok, err := svc.MatchesKnownPattern(ctx, "unrelated "+uuid.New().String())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty text does not match", func(t *testing.T) {
		ok, err := svc.MatchesKnownPattern(ctx, "")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPatternServiceOrder(t *testing.T) {
	ctx := context.Background()
	g := mock.NewGraph()
	_, err := service.NewThreatService(g.NewSession).Persist(ctx, []*threatgraph.Threat{
		{
			Name: "both",
			IOCs: threatgraph.IOCSet{Domains: []string{"evil.example.com"}},
			TTPs: threatgraph.TTPSet{Techniques: []string{"Spearphishing"}},
		},
	})
	require.NoError(t, err)

	t.Run("TTP is checked before IOC", func(t *testing.T) {
		svc := service.NewPatternService(g.NewSession)
		match, err := svc.FindKnownPattern(ctx, "Spearphishing mail from evil.example.com")
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, graph.NodeTTP, match.Label)
		assert.Equal(t, "Spearphishing", match.Name)
	})

	t.Run("empty text does not open session", func(t *testing.T) {
		opened := g.Opened
		svc := service.NewPatternService(g.NewSession)
		match, err := svc.FindKnownPattern(ctx, "   ")
		require.NoError(t, err)
		assert.Nil(t, match)
		assert.Equal(t, opened, g.Opened)
	})

	t.Run("threat name is not a pattern", func(t *testing.T) {
		svc := service.NewPatternService(g.NewSession)
		ok, err := svc.MatchesKnownPattern(ctx, "both")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
