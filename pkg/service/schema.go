package service

import (
	"context"

	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/graph"
)

type SchemaService struct {
	newSession adaptor.GraphSessionFactory
}

func NewSchemaService(newSession adaptor.GraphSessionFactory) *SchemaService {
	return &SchemaService{newSession: newSession}
}

// Schema reads labels, relationship types and node properties of the graph.
func (x *SchemaService) Schema(ctx context.Context) (*graph.Schema, error) {
	session, err := x.newSession(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open graph session")
	}
	defer session.Close(ctx)

	labels, err := session.ExecuteRead(ctx, graph.Labels())
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read labels")
	}
	relTypes, err := session.ExecuteRead(ctx, graph.RelationshipTypes())
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read relationship types")
	}
	props, err := session.ExecuteRead(ctx, graph.NodeProperties())
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read node properties")
	}

	return graph.NewSchema(labels, relTypes, props), nil
}
