package graph

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// Op identifies what a Statement does, independent from its Cypher text.
type Op int

const (
	OpCreateThreat Op = iota + 1
	OpMergeThreat
	OpCreateLinked
	OpCountNodes
	OpCountEdges
	OpMatchName
	OpLabels
	OpRelationshipTypes
	OpNodeProperties
)

// Statement is a Cypher query with parameters. Labels and relationship types in
// Cypher come from NodeKind and EdgeKind constants only; values are always passed
// as parameters.
type Statement struct {
	Op     Op
	Node   NodeKind
	Edge   EdgeKind
	Cypher string
	Params map[string]interface{}
}

// Row is a record returned by a read statement.
type Row map[string]interface{}

// Parameter names
const (
	ParamProps      = "props"
	ParamName       = "name"
	ParamRunID      = "run_id"
	ParamThreatUID  = "threat_uid"
	ParamThreatName = "threat_name"
	ParamUpdate     = "update"
	ParamText       = "text"
)

func newUID() string {
	return uuid.New().String()
}

func timeProp(props map[string]interface{}, key string, t *time.Time) {
	if t != nil {
		props[key] = t.UTC()
	}
}

func stringsProp(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func threatProps(threat *threatgraph.Threat, uid string, runID threatgraph.RunID) map[string]interface{} {
	props := map[string]interface{}{
		"uid":                        uid,
		"name":                       threat.Name,
		"description":                threat.Description,
		"threat_type":                threat.ThreatType,
		"run_id":                     runID.String(),
		"confidence_score":           threat.ConfidenceScore,
		"targeted_sectors":           stringsProp(threat.TargetedSectors),
		"targeted_countries":         stringsProp(threat.TargetedCountries),
		"data_sources":               stringsProp(threat.DataSources),
		"mitigation_recommendations": stringsProp(threat.MitigationRecommendations),
		"related_threats":            stringsProp(threat.RelatedThreats),
		"tags":                       stringsProp(threat.Tags),
		"references":                 stringsProp(threat.References),
	}
	timeProp(props, "first_seen", threat.FirstSeen)
	timeProp(props, "last_seen", threat.LastSeen)
	return props
}

const (
	createThreatCypher = "CREATE (t:Threat $props)"

	// A name may already have several threat nodes written in create mode. The
	// one with the smallest uid is updated, and linked statements addressing
	// the threat by name pick the same node.
	mergeThreatCypher = "OPTIONAL MATCH (e:Threat {name: $name}) " +
		"WITH e ORDER BY e.uid LIMIT 1 " +
		"FOREACH (i IN CASE WHEN e IS NULL THEN [1] ELSE [] END | CREATE (:Threat $props)) " +
		"FOREACH (i IN CASE WHEN e IS NULL THEN [] ELSE [1] END | SET e += $update)"
)

// CreateThreat returns a statement that creates a new threat node.
func CreateThreat(threat *threatgraph.Threat, uid string, runID threatgraph.RunID) *Statement {
	return &Statement{
		Op:     OpCreateThreat,
		Node:   NodeThreat,
		Cypher: createThreatCypher,
		Params: map[string]interface{}{
			ParamProps: threatProps(threat, uid, runID),
		},
	}
}

// MergeThreat returns a statement that updates descriptive properties of the
// threat node having the same name, or creates it with uid and runID. uid and
// run_id of an existing node are kept, so the node stays counted for the run
// that created it.
func MergeThreat(threat *threatgraph.Threat, uid string, runID threatgraph.RunID) *Statement {
	props := threatProps(threat, uid, runID)
	update := make(map[string]interface{}, len(props))
	for k, v := range props {
		switch k {
		case "uid", "run_id", "name":
		default:
			update[k] = v
		}
	}

	return &Statement{
		Op:     OpMergeThreat,
		Node:   NodeThreat,
		Cypher: mergeThreatCypher,
		Params: map[string]interface{}{
			ParamName:   threat.Name,
			ParamProps:  props,
			ParamUpdate: update,
		},
	}
}

// ThreatRef addresses the threat node that a linked statement attaches to.
type ThreatRef struct {
	UID  string
	Name string
}

// ByUID refers the threat node created in the same plan.
func ByUID(uid string) ThreatRef { return ThreatRef{UID: uid} }

// ByName refers the threat node chosen by MergeThreat for name.
func ByName(name string) ThreatRef { return ThreatRef{Name: name} }

func (x ThreatRef) match() (string, map[string]interface{}) {
	if x.UID == "" {
		return "MATCH (t:Threat {name: $threat_name}) WITH t ORDER BY t.uid LIMIT 1 ",
			map[string]interface{}{ParamThreatName: x.Name}
	}
	return "MATCH (t:Threat {uid: $threat_uid}) ",
		map[string]interface{}{ParamThreatUID: x.UID}
}

func linked(kind NodeKind, ref ThreatRef, runID threatgraph.RunID, props map[string]interface{}) *Statement {
	props["uid"] = newUID()
	props["run_id"] = runID.String()

	match, params := ref.match()
	params[ParamRunID] = runID.String()
	params[ParamProps] = props

	return &Statement{
		Op:   OpCreateLinked,
		Node: kind,
		Edge: kind.Edge(),
		Cypher: match + fmt.Sprintf("CREATE (n:%s $props) "+
			"CREATE (t)-[:%s {run_id: $run_id}]->(n)", kind, kind.Edge()),
		Params: params,
	}
}

// CreateIndicator returns a statement creating an IOC node linked by HAS_INDICATOR.
func CreateIndicator(ref ThreatRef, value threatgraph.Value, runID threatgraph.RunID) *Statement {
	return linked(NodeIOC, ref, runID, map[string]interface{}{
		"name": value.Data,
		"type": string(value.Type),
	})
}

// CreateTechnique returns a statement creating a TTP node linked by USES_TECHNIQUE.
func CreateTechnique(ref ThreatRef, ttp threatgraph.TTP, runID threatgraph.RunID) *Statement {
	return linked(NodeTTP, ref, runID, map[string]interface{}{
		"name":     ttp.Name,
		"category": string(ttp.Category),
	})
}

// CreateActor returns a statement creating a ThreatActor node linked by ATTRIBUTED_TO.
func CreateActor(ref ThreatRef, actor threatgraph.ThreatActor, runID threatgraph.RunID) *Statement {
	return linked(NodeThreatActor, ref, runID, map[string]interface{}{
		"name":        actor.Name,
		"aliases":     stringsProp(actor.Aliases),
		"description": actor.Description,
		"motivation":  actor.Motivation,
		"country":     actor.Country,
	})
}

// CreateVulnerability returns a statement creating a CVE node linked by EXPLOITS.
func CreateVulnerability(ref ThreatRef, cve threatgraph.CVE, runID threatgraph.RunID) *Statement {
	props := map[string]interface{}{
		"name":        cve.ID,
		"cve_id":      cve.ID,
		"description": cve.Description,
		"severity":    cve.Severity,
	}
	timeProp(props, "published_date", cve.PublishedDate)
	return linked(NodeCVE, ref, runID, props)
}

// CreateCampaign returns a statement creating a Campaign node linked by PART_OF_CAMPAIGN.
func CreateCampaign(ref ThreatRef, campaign threatgraph.Campaign, runID threatgraph.RunID) *Statement {
	props := map[string]interface{}{
		"name":        campaign.Name,
		"description": campaign.Description,
	}
	timeProp(props, "start_date", campaign.StartDate)
	timeProp(props, "end_date", campaign.EndDate)
	return linked(NodeCampaign, ref, runID, props)
}

// CountNodes returns a statement counting nodes of kind tagged with runID. Empty
// kind counts nodes of any kind.
func CountNodes(runID threatgraph.RunID, kind NodeKind) (*Statement, error) {
	cypher := "MATCH (n {run_id: $run_id}) RETURN count(n) AS count"
	if kind != "" {
		if !kind.Valid() {
			return nil, errors.New("Unknown node kind").With("kind", kind)
		}
		cypher = fmt.Sprintf("MATCH (n:%s {run_id: $run_id}) RETURN count(n) AS count", kind)
	}

	return &Statement{
		Op:     OpCountNodes,
		Node:   kind,
		Cypher: cypher,
		Params: map[string]interface{}{ParamRunID: runID.String()},
	}, nil
}

// CountEdges returns a statement counting edges of kind tagged with runID. Empty
// kind counts edges of any kind.
func CountEdges(runID threatgraph.RunID, kind EdgeKind) (*Statement, error) {
	cypher := "MATCH ()-[r {run_id: $run_id}]->() RETURN count(r) AS count"
	if kind != "" {
		if !kind.Valid() {
			return nil, errors.New("Unknown edge kind").With("kind", kind)
		}
		cypher = fmt.Sprintf("MATCH ()-[r:%s {run_id: $run_id}]->() RETURN count(r) AS count", kind)
	}

	return &Statement{
		Op:     OpCountEdges,
		Edge:   kind,
		Cypher: cypher,
		Params: map[string]interface{}{ParamRunID: runID.String()},
	}, nil
}

// MatchName returns a statement finding a node of kind whose name is a substring
// of text. Nodes with empty name never match.
func MatchName(kind NodeKind, text string) (*Statement, error) {
	if !kind.Valid() {
		return nil, errors.New("Unknown node kind").With("kind", kind)
	}

	return &Statement{
		Op:   OpMatchName,
		Node: kind,
		Cypher: fmt.Sprintf("MATCH (n:%s) WHERE n.name <> '' AND $text CONTAINS n.name "+
			"RETURN n.name AS name LIMIT 1", kind),
		Params: map[string]interface{}{ParamText: text},
	}, nil
}

// Labels returns a statement listing node labels.
func Labels() *Statement {
	return &Statement{
		Op:     OpLabels,
		Cypher: "CALL db.labels() YIELD label RETURN label ORDER BY label",
	}
}

// RelationshipTypes returns a statement listing relationship types.
func RelationshipTypes() *Statement {
	return &Statement{
		Op:     OpRelationshipTypes,
		Cypher: "CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType AS type ORDER BY type",
	}
}

// NodeProperties returns a statement listing property names per label set.
func NodeProperties() *Statement {
	return &Statement{
		Op: OpNodeProperties,
		Cypher: "CALL db.schema.nodeTypeProperties() YIELD nodeLabels, propertyName " +
			"RETURN nodeLabels AS labels, propertyName AS property",
	}
}
