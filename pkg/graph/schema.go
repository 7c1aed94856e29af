package graph

import (
	"sort"
	"strings"
)

// Schema is labels, relationship types and property names of the graph.
type Schema struct {
	Labels            []string            `json:"labels"`
	RelationshipTypes []string            `json:"relationship_types"`
	Properties        map[string][]string `json:"properties"`
}

// NewSchema builds Schema from rows of Labels, RelationshipTypes and NodeProperties.
func NewSchema(labels, relTypes, props []Row) *Schema {
	schema := &Schema{
		Labels:            []string{},
		RelationshipTypes: []string{},
		Properties:        make(map[string][]string),
	}

	for _, row := range labels {
		schema.Labels = append(schema.Labels, row.String("label"))
	}
	for _, row := range relTypes {
		schema.RelationshipTypes = append(schema.RelationshipTypes, row.String("type"))
	}

	seen := make(map[string]map[string]struct{})
	for _, row := range props {
		property := row.String("property")
		if property == "" {
			continue
		}
		for _, label := range row.Strings("labels") {
			if seen[label] == nil {
				seen[label] = make(map[string]struct{})
			}
			if _, ok := seen[label][property]; ok {
				continue
			}
			seen[label][property] = struct{}{}
			schema.Properties[label] = append(schema.Properties[label], property)
		}
	}

	sort.Strings(schema.Labels)
	sort.Strings(schema.RelationshipTypes)
	for label := range schema.Properties {
		sort.Strings(schema.Properties[label])
	}

	return schema
}

// Text renders schema as plain text, e.g. for a prompt or a terminal.
func (x *Schema) Text() string {
	var b strings.Builder
	b.WriteString("Node Properties:\n")
	for _, label := range x.Labels {
		b.WriteString("  " + label + ": " + strings.Join(x.Properties[label], ", ") + "\n")
	}
	b.WriteString("Relationships:\n")
	for _, rel := range x.RelationshipTypes {
		b.WriteString("  " + rel + "\n")
	}
	return b.String()
}
