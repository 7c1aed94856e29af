package graph

// NodeKind is label of a node. Only kinds declared here are written to the graph.
type NodeKind string

const (
	NodeThreat      NodeKind = "Threat"
	NodeIOC         NodeKind = "IOC"
	NodeTTP         NodeKind = "TTP"
	NodeThreatActor NodeKind = "ThreatActor"
	NodeCVE         NodeKind = "CVE"
	NodeCampaign    NodeKind = "Campaign"
)

// NodeKinds is all known node kinds.
var NodeKinds = []NodeKind{
	NodeThreat,
	NodeIOC,
	NodeTTP,
	NodeThreatActor,
	NodeCVE,
	NodeCampaign,
}

// Valid returns true if x is one of NodeKinds.
func (x NodeKind) Valid() bool {
	for _, kind := range NodeKinds {
		if x == kind {
			return true
		}
	}
	return false
}

// Edge returns type of edge from a threat node to a node of kind x. It returns
// empty EdgeKind for NodeThreat.
func (x NodeKind) Edge() EdgeKind {
	return edgeOf[x]
}

// EdgeKind is type of a relationship.
type EdgeKind string

const (
	EdgeHasIndicator   EdgeKind = "HAS_INDICATOR"
	EdgeUsesTechnique  EdgeKind = "USES_TECHNIQUE"
	EdgeAttributedTo   EdgeKind = "ATTRIBUTED_TO"
	EdgeExploits       EdgeKind = "EXPLOITS"
	EdgePartOfCampaign EdgeKind = "PART_OF_CAMPAIGN"
)

// EdgeKinds is all known edge kinds.
var EdgeKinds = []EdgeKind{
	EdgeHasIndicator,
	EdgeUsesTechnique,
	EdgeAttributedTo,
	EdgeExploits,
	EdgePartOfCampaign,
}

// Valid returns true if x is one of EdgeKinds.
func (x EdgeKind) Valid() bool {
	for _, kind := range EdgeKinds {
		if x == kind {
			return true
		}
	}
	return false
}

var edgeOf = map[NodeKind]EdgeKind{
	NodeIOC:         EdgeHasIndicator,
	NodeTTP:         EdgeUsesTechnique,
	NodeThreatActor: EdgeAttributedTo,
	NodeCVE:         EdgeExploits,
	NodeCampaign:    EdgePartOfCampaign,
}

// Mode decides how a threat node is written.
type Mode string

const (
	// ModeCreate always creates a new threat node, even if the name exists.
	ModeCreate Mode = "create"
	// ModeMerge reuses the threat node with the same name and overwrites its properties.
	ModeMerge Mode = "merge"
)
