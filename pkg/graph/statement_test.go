package graph_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanThreat(t *testing.T) {
	threat := &threatgraph.Threat{
		Name: "X",
		IOCs: threatgraph.IOCSet{
			IPAddresses: []string{"1.2.3.4"},
			Domains:     []string{""},
		},
		TTPs:         threatgraph.TTPSet{Techniques: []string{"Phishing"}},
		ThreatActors: []threatgraph.ThreatActor{{Name: "APT-X"}, {Name: ""}},
		CVEs:         []threatgraph.CVE{{ID: "CVE-2024-6387"}},
		Campaigns:    []threatgraph.Campaign{{Name: "Op"}},
	}

	t.Run("statements are ordered and empty entries are skipped", func(t *testing.T) {
		plan := graph.PlanThreat(threat, "run-1", graph.ModeCreate)
		require.Equal(t, 6, len(plan.Statements))

		expected := []graph.NodeKind{
			graph.NodeThreat, graph.NodeIOC, graph.NodeTTP,
			graph.NodeThreatActor, graph.NodeCVE, graph.NodeCampaign,
		}
		for i, stmt := range plan.Statements {
			assert.Equal(t, expected[i], stmt.Node)
		}
		assert.Equal(t, graph.OpCreateThreat, plan.Statements[0].Op)
	})

	t.Run("linked statements refer threat by uid and carry run ID", func(t *testing.T) {
		plan := graph.PlanThreat(threat, "run-1", graph.ModeCreate)
		threatProps := plan.Statements[0].Params[graph.ParamProps].(map[string]interface{})
		assert.Equal(t, plan.ThreatUID, threatProps["uid"])
		assert.Equal(t, "run-1", threatProps["run_id"])

		for _, stmt := range plan.Statements[1:] {
			assert.Equal(t, graph.OpCreateLinked, stmt.Op)
			assert.Equal(t, plan.ThreatUID, stmt.Params[graph.ParamThreatUID])
			assert.Equal(t, "run-1", stmt.Params[graph.ParamRunID])
			props := stmt.Params[graph.ParamProps].(map[string]interface{})
			assert.Equal(t, "run-1", props["run_id"])
			assert.NotEmpty(t, props["uid"])
			assert.NotEqual(t, plan.ThreatUID, props["uid"])
			assert.Equal(t, stmt.Node.Edge(), stmt.Edge)
		}
	})

	t.Run("merge mode merges threat on name and keeps identity of existing node", func(t *testing.T) {
		plan := graph.PlanThreat(threat, "run-1", graph.ModeMerge)
		stmt := plan.Statements[0]
		assert.Equal(t, graph.OpMergeThreat, stmt.Op)
		assert.Equal(t, "X", stmt.Params[graph.ParamName])
		assert.True(t, strings.HasPrefix(stmt.Cypher, "OPTIONAL MATCH (e:Threat {name: $name}) WITH e ORDER BY e.uid LIMIT 1 "))

		props := stmt.Params[graph.ParamProps].(map[string]interface{})
		assert.Equal(t, plan.ThreatUID, props["uid"])
		update := stmt.Params[graph.ParamUpdate].(map[string]interface{})
		assert.NotContains(t, update, "uid")
		assert.NotContains(t, update, "run_id")
		assert.NotContains(t, update, "name")
		assert.Contains(t, update, "description")
	})

	t.Run("merge mode links entities to one threat node chosen by name", func(t *testing.T) {
		plan := graph.PlanThreat(threat, "run-1", graph.ModeMerge)
		for _, stmt := range plan.Statements[1:] {
			assert.Equal(t, "X", stmt.Params[graph.ParamThreatName])
			assert.NotContains(t, stmt.Params, graph.ParamThreatUID)
			assert.True(t, strings.HasPrefix(stmt.Cypher,
				"MATCH (t:Threat {name: $threat_name}) WITH t ORDER BY t.uid LIMIT 1 CREATE "), stmt.Cypher)
		}
	})

	t.Run("each plan has its own threat uid", func(t *testing.T) {
		p1 := graph.PlanThreat(threat, "run-1", graph.ModeCreate)
		p2 := graph.PlanThreat(threat, "run-1", graph.ModeCreate)
		assert.NotEqual(t, p1.ThreatUID, p2.ThreatUID)
	})
}

func TestStatementValuesAreParameters(t *testing.T) {
	evil := "x'}) DETACH DELETE (n) //"
	threat := &threatgraph.Threat{
		Name: evil,
		IOCs: threatgraph.IOCSet{Domains: []string{evil}},
	}

	for _, stmt := range graph.PlanThreat(threat, "run-1", graph.ModeMerge).Statements {
		assert.NotContains(t, stmt.Cypher, evil)
	}

	stmt, err := graph.MatchName(graph.NodeTTP, evil)
	require.NoError(t, err)
	assert.NotContains(t, stmt.Cypher, evil)
	assert.Equal(t, evil, stmt.Params[graph.ParamText])
}

func TestLinkedCypher(t *testing.T) {
	stmt := graph.CreateIndicator(graph.ByUID("uid-1"), threatgraph.Value{Data: "1.2.3.4", Type: threatgraph.ValueIPAddr}, "run-1")
	assert.Equal(t,
		"MATCH (t:Threat {uid: $threat_uid}) CREATE (n:IOC $props) CREATE (t)-[:HAS_INDICATOR {run_id: $run_id}]->(n)",
		stmt.Cypher)

	props := stmt.Params[graph.ParamProps].(map[string]interface{})
	assert.Equal(t, "1.2.3.4", props["name"])
	assert.Equal(t, "ipaddr", props["type"])

	cve := graph.CreateVulnerability(graph.ByUID("uid-1"), threatgraph.CVE{ID: "CVE-2021-44228"}, "run-1")
	assert.Contains(t, cve.Cypher, "[:EXPLOITS")
	assert.Equal(t, "CVE-2021-44228", cve.Params[graph.ParamProps].(map[string]interface{})["cve_id"])
}

func TestWriteSummary(t *testing.T) {
	var summary graph.WriteSummary
	summary.Add(graph.WriteSummary{NodesCreated: 2, RelationshipsCreated: 1})
	summary.Add(graph.WriteSummary{NodesCreated: 1, RelationshipsCreated: 1})
	assert.Equal(t, 3, summary.NodesCreated)
	assert.Equal(t, 2, summary.RelationshipsCreated)
	assert.Equal(t, 1, summary.ThreatsCreated())
}

func TestReadStatements(t *testing.T) {
	t.Run("count of any kind", func(t *testing.T) {
		stmt, err := graph.CountNodes("run-1", "")
		require.NoError(t, err)
		assert.Equal(t, "MATCH (n {run_id: $run_id}) RETURN count(n) AS count", stmt.Cypher)

		stmt, err = graph.CountEdges("run-1", "")
		require.NoError(t, err)
		assert.Equal(t, "MATCH ()-[r {run_id: $run_id}]->() RETURN count(r) AS count", stmt.Cypher)
	})

	t.Run("count of a kind", func(t *testing.T) {
		stmt, err := graph.CountNodes("run-1", graph.NodeCampaign)
		require.NoError(t, err)
		assert.Contains(t, stmt.Cypher, "(n:Campaign {run_id: $run_id})")

		stmt, err = graph.CountEdges("run-1", graph.EdgeAttributedTo)
		require.NoError(t, err)
		assert.Contains(t, stmt.Cypher, "[r:ATTRIBUTED_TO {run_id: $run_id}]")
	})

	t.Run("unknown kinds are rejected", func(t *testing.T) {
		_, err := graph.CountNodes("run-1", graph.NodeKind("Malware) DETACH DELETE (x"))
		assert.Error(t, err)
		_, err = graph.CountEdges("run-1", graph.EdgeKind("KNOWS"))
		assert.Error(t, err)
		_, err = graph.MatchName(graph.NodeKind(""), "text")
		assert.Error(t, err)
	})
}

func TestKinds(t *testing.T) {
	for _, kind := range graph.NodeKinds {
		assert.True(t, kind.Valid())
		if kind == graph.NodeThreat {
			assert.Equal(t, graph.EdgeKind(""), kind.Edge())
		} else {
			assert.True(t, kind.Edge().Valid(), kind)
		}
	}
	assert.False(t, graph.NodeKind("Threat ").Valid())
	assert.Equal(t, len(graph.EdgeKinds), len(graph.NodeKinds)-1)
}
