package graph

import (
	"github.com/m-mizutani/threatgraph"
)

// Plan is a list of statements to write one threat. Statements must be executed in
// order because linked statements refer the threat node written first. ThreatUID
// is uid of the threat node if the plan creates it.
type Plan struct {
	ThreatUID  string
	Statements []*Statement
}

// WriteSummary is counters reported by a write transaction.
type WriteSummary struct {
	NodesCreated         int `json:"nodes_created"`
	RelationshipsCreated int `json:"relationships_created"`
}

// Add accumulates counters of other.
func (x *WriteSummary) Add(other WriteSummary) {
	x.NodesCreated += other.NodesCreated
	x.RelationshipsCreated += other.RelationshipsCreated
}

// ThreatsCreated returns number of threat nodes created by executed plans. Each
// linked statement creates exactly one node and one relationship, then the rest
// of created nodes are threat nodes.
func (x *WriteSummary) ThreatsCreated() int {
	return x.NodesCreated - x.RelationshipsCreated
}

// PlanThreat builds statements for threat: a threat statement and then one linked
// statement per IOC, TTP, threat actor, CVE and campaign. threat should be
// normalized, otherwise empty entries are skipped here as well.
func PlanThreat(threat *threatgraph.Threat, runID threatgraph.RunID, mode Mode) *Plan {
	uid := newUID()
	plan := &Plan{ThreatUID: uid}
	ref := ByUID(uid)

	if mode == ModeMerge {
		plan.Statements = append(plan.Statements, MergeThreat(threat, uid, runID))
		ref = ByName(threat.Name)
	} else {
		plan.Statements = append(plan.Statements, CreateThreat(threat, uid, runID))
	}

	for _, v := range threat.IOCs.Values() {
		if v.Data == "" {
			continue
		}
		plan.Statements = append(plan.Statements, CreateIndicator(ref, v, runID))
	}
	for _, ttp := range threat.TTPs.Entries() {
		if ttp.Name == "" {
			continue
		}
		plan.Statements = append(plan.Statements, CreateTechnique(ref, ttp, runID))
	}
	for _, actor := range threat.ThreatActors {
		if actor.Name == "" {
			continue
		}
		plan.Statements = append(plan.Statements, CreateActor(ref, actor, runID))
	}
	for _, cve := range threat.CVEs {
		if cve.ID == "" {
			continue
		}
		plan.Statements = append(plan.Statements, CreateVulnerability(ref, cve, runID))
	}
	for _, campaign := range threat.Campaigns {
		if campaign.Name == "" {
			continue
		}
		plan.Statements = append(plan.Statements, CreateCampaign(ref, campaign, runID))
	}

	return plan
}
