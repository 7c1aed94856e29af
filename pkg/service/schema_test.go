package service_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/mock"
	"github.com/m-mizutani/threatgraph/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaService(t *testing.T) {
	ctx := context.Background()
	g := mock.NewGraph()

	_, err := service.NewThreatService(g.NewSession).Persist(ctx, []*threatgraph.Threat{
		{
			Name: "schema",
			IOCs: threatgraph.IOCSet{IPAddresses: []string{"192.0.2.1"}},
			CVEs: []threatgraph.CVE{{ID: "CVE-2023-0001"}},
		},
	})
	require.NoError(t, err)

	schema, err := service.NewSchemaService(g.NewSession).Schema(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"CVE", "IOC", "Threat"}, schema.Labels)
	assert.Equal(t, []string{"EXPLOITS", "HAS_INDICATOR"}, schema.RelationshipTypes)
	assert.Contains(t, schema.Properties["IOC"], "type")
	assert.Contains(t, schema.Properties["CVE"], "cve_id")
	assert.Contains(t, schema.Properties["Threat"], "run_id")

	text := schema.Text()
	assert.Contains(t, text, "Node Properties:")
	assert.Contains(t, text, "Relationships:")
	assert.Contains(t, text, "HAS_INDICATOR")
	assert.Equal(t, g.Opened, g.Closed)
}
