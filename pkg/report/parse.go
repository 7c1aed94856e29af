// Package report converts free-text output of an upstream analysis agent into
// threats on a best-effort basis.
package report

import (
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/threatgraph"
)

var (
	headlinePattern = regexp.MustCompile(`\*\*(.*?)\s*Comprehensive Report\*\*`)
	nodePattern     = regexp.MustCompile(`(?m)^[ \t]*(\d+)\.[ \t]*(.*)\n((?:[ \t]*-.*(?:\n|$))*)`)
	propertyPattern = regexp.MustCompile(`(?m)^[ \t]*-[ \t]*(.*?):[ \t]*(.*)$`)
	edgePattern     = regexp.MustCompile(`\((.*?)\)\s*-\[(.*?)\]->\s*\((.*?)\)`)
)

// Node is a numbered item of report with "- Key: Value" properties.
type Node struct {
	Name       string
	Properties map[string]string
}

// Edge is a relation written as "(from) -[relation]-> (to)".
type Edge struct {
	From     string
	Relation string
	To       string
}

// Document is structure found in a report.
type Document struct {
	Name        string
	Description string
	Nodes       []Node
	Edges       []Edge
}

// Scan finds headline, nodes and edges in text. It returns nil if text has no
// "**<name> Comprehensive Report**" headline.
func Scan(text string) *Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	loc := headlinePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}

	doc := &Document{
		Name: strings.TrimSpace(text[loc[2]:loc[3]]),
	}

	rest := text[loc[1]:]
	if idx := strings.Index(rest, "\n\n"); idx >= 0 {
		rest = rest[:idx]
	}
	doc.Description = strings.TrimSpace(rest)

	for _, m := range nodePattern.FindAllStringSubmatch(text, -1) {
		node := Node{
			Name:       strings.TrimSpace(m[2]),
			Properties: make(map[string]string),
		}
		for _, p := range propertyPattern.FindAllStringSubmatch(m[3], -1) {
			node.Properties[strings.TrimSpace(p[1])] = strings.TrimSpace(p[2])
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	for _, m := range edgePattern.FindAllStringSubmatch(text, -1) {
		doc.Edges = append(doc.Edges, Edge{
			From:     strings.TrimSpace(m[1]),
			Relation: strings.TrimSpace(m[2]),
			To:       strings.TrimSpace(m[3]),
		})
	}

	return doc
}

// property returns a property of the first node that describes the threat itself.
func (x *Document) property(key, defaultValue string) string {
	if len(x.Nodes) == 0 {
		return defaultValue
	}
	if v, ok := x.Nodes[0].Properties[key]; ok && v != "" {
		return v
	}
	return defaultValue
}

type role int

const (
	roleNone role = iota
	roleActor
	roleTactic
	roleSubTechnique
	roleTechnique
	roleProcedure
	roleCampaign
	roleMitigation
	roleVulnerability
	roleTarget
)

// typeRole maps "Type" property of a node.
func typeRole(nodeType string) role {
	kind := strings.ToLower(nodeType)
	switch {
	case strings.Contains(kind, "actor") || strings.Contains(kind, "group"):
		return roleActor
	case strings.Contains(kind, "tactic"):
		return roleTactic
	case strings.Contains(kind, "sub-technique") || strings.Contains(kind, "sub technique"):
		return roleSubTechnique
	case strings.Contains(kind, "technique"):
		return roleTechnique
	case strings.Contains(kind, "procedure"):
		return roleProcedure
	case strings.Contains(kind, "campaign"):
		return roleCampaign
	case strings.Contains(kind, "mitigation"):
		return roleMitigation
	case strings.Contains(kind, "vulnerability") || kind == "cve":
		return roleVulnerability
	}
	return roleNone
}

// relationRole maps relation between the threat and the other end of an edge.
// Direction of the edge does not matter.
func relationRole(relation string) role {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(relation), " ", "_")) {
	case "OPERATES", "OPERATED_BY", "ATTRIBUTED_TO", "DEVELOPS", "DEVELOPED_BY", "DEPLOYS", "DEPLOYED_BY":
		return roleActor
	case "USES", "USES_TECHNIQUE", "EMPLOYS", "IMPLEMENTS":
		return roleTechnique
	case "USES_TACTIC":
		return roleTactic
	case "EXPLOITS":
		return roleVulnerability
	case "PART_OF", "PART_OF_CAMPAIGN":
		return roleCampaign
	case "MITIGATED_BY", "MITIGATES":
		return roleMitigation
	case "TARGETS", "AFFECTS":
		return roleTarget
	}
	return roleNone
}

// isThreat returns true if name refers the threat of the document by headline or
// by the first node.
func (x *Document) isThreat(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	candidates := []string{x.Name}
	if len(x.Nodes) > 0 {
		candidates = append(candidates, x.Nodes[0].Name)
	}
	for _, c := range candidates {
		if c = strings.ToLower(c); c != "" && strings.Contains(c, name) {
			return true
		}
	}
	return false
}

// edgeRoles returns roles of names connected to the threat by edges, in order of
// appearance.
func (x *Document) edgeRoles() ([]string, map[string]role) {
	var names []string
	roles := make(map[string]role)
	for _, edge := range x.Edges {
		var other string
		switch {
		case x.isThreat(edge.From) && !x.isThreat(edge.To):
			other = edge.To
		case x.isThreat(edge.To) && !x.isThreat(edge.From):
			other = edge.From
		default:
			continue
		}

		r := relationRole(edge.Relation)
		if r == roleNone || other == "" {
			continue
		}
		if _, ok := roles[other]; !ok {
			names = append(names, other)
			roles[other] = r
		}
	}
	return names, roles
}

func assign(threat *threatgraph.Threat, r role, name string, props map[string]string) bool {
	switch r {
	case roleActor:
		threat.ThreatActors = append(threat.ThreatActors, threatgraph.ThreatActor{
			Name:        name,
			Description: props["Description"],
			Motivation:  props["Motivation"],
			Country:     props["Country"],
		})
	case roleTactic:
		threat.TTPs.Tactics = append(threat.TTPs.Tactics, name)
	case roleSubTechnique:
		threat.TTPs.SubTechniques = append(threat.TTPs.SubTechniques, name)
	case roleTechnique:
		threat.TTPs.Techniques = append(threat.TTPs.Techniques, name)
	case roleProcedure:
		threat.TTPs.Procedures = append(threat.TTPs.Procedures, name)
	case roleCampaign:
		threat.Campaigns = append(threat.Campaigns, threatgraph.Campaign{
			Name:        name,
			Description: props["Description"],
		})
	case roleMitigation:
		threat.MitigationRecommendations = append(threat.MitigationRecommendations, name)
	case roleTarget:
		threat.TargetedSectors = append(threat.TargetedSectors, name)
	case roleVulnerability:
		id := name
		if found := cvePattern.FindString(strings.ToUpper(name)); found != "" {
			id = found
		}
		for _, cve := range threat.CVEs {
			if cve.ID == id {
				return true
			}
		}
		threat.CVEs = append(threat.CVEs, threatgraph.CVE{
			ID:          id,
			Description: props["Description"],
			Severity:    props["Severity"],
		})
	default:
		return false
	}
	return true
}

// Threat builds a threat from document. Indicators and CVE IDs are extracted
// from text. Other nodes are mapped to actors, techniques, campaigns and so on by
// their "Type" property, or by relation of an edge to the threat when the type
// tells nothing. Names appearing only in edges to the threat are mapped as well.
func (x *Document) Threat(text string, now time.Time) *threatgraph.Threat {
	ts := now
	threat := &threatgraph.Threat{
		Name:            x.Name,
		Description:     x.Description,
		ThreatType:      x.property("Type", "Unknown"),
		IOCs:            ExtractIOCs(text),
		CVEs:            ExtractCVEs(text),
		FirstSeen:       &ts,
		LastSeen:        &ts,
		ConfidenceScore: 1.0,
	}
	if len(x.Nodes) > 0 {
		threat.Tags = []string{x.property("Category", "Unknown")}
	}
	if systems := x.property("Affected Systems", ""); systems != "" {
		threat.TargetedSectors = splitList(systems)
	}

	edgeNames, edgeRoles := x.edgeRoles()
	seen := make(map[string]struct{})

	for i, node := range x.Nodes {
		if i == 0 {
			continue
		}
		seen[node.Name] = struct{}{}

		r := typeRole(node.Properties["Type"])
		if r == roleNone {
			r = edgeRoles[node.Name]
		}
		if !assign(threat, r, node.Name, node.Properties) {
			threat.RelatedThreats = append(threat.RelatedThreats, node.Name)
		}
	}

	for _, name := range edgeNames {
		if _, ok := seen[name]; ok {
			continue
		}
		assign(threat, edgeRoles[name], name, nil)
	}

	threat.Normalize()
	return threat
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		out = append(out, strings.TrimSpace(item))
	}
	return out
}

// Parse returns threats found in text. Empty result means text has no recognizable
// report. Headline without blank line after it still makes a threat.
func Parse(text string, now time.Time) []*threatgraph.Threat {
	doc := Scan(text)
	if doc == nil || doc.Name == "" {
		return nil
	}
	return []*threatgraph.Threat{doc.Threat(text, now)}
}

// ParseOrUnknown returns result of Parse, or one unknown threat for query when
// nothing is found.
func ParseOrUnknown(text, query string, now time.Time) []*threatgraph.Threat {
	if threats := Parse(text, now); len(threats) > 0 {
		return threats
	}
	return []*threatgraph.Threat{threatgraph.NewUnknownThreat(query, now)}
}
