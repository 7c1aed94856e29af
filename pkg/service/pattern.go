package service

import (
	"context"
	"strings"

	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/graph"
)

// PatternLabels is node kinds checked by PatternService in order.
var PatternLabels = []graph.NodeKind{
	graph.NodeTTP,
	graph.NodeIOC,
}

// PatternService answers whether a text mentions a stored technique or indicator.
type PatternService struct {
	newSession adaptor.GraphSessionFactory
	labels     []graph.NodeKind
}

func NewPatternService(newSession adaptor.GraphSessionFactory) *PatternService {
	return &PatternService{
		newSession: newSession,
		labels:     PatternLabels,
	}
}

// PatternMatch is the first node whose name appears in a text.
type PatternMatch struct {
	Label graph.NodeKind `json:"label"`
	Name  string         `json:"name"`
}

// MatchesKnownPattern returns true if text contains name of any TTP or IOC node.
func (x *PatternService) MatchesKnownPattern(ctx context.Context, text string) (bool, error) {
	match, err := x.FindKnownPattern(ctx, text)
	if err != nil {
		return false, err
	}
	return match != nil, nil
}

// FindKnownPattern queries labels one by one and returns the first hit. It returns
// nil if nothing matches. No ranking among hits.
func (x *PatternService) FindKnownPattern(ctx context.Context, text string) (*PatternMatch, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	session, err := x.newSession(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open graph session")
	}
	defer session.Close(ctx)

	for _, label := range x.labels {
		stmt, err := graph.MatchName(label, text)
		if err != nil {
			return nil, err
		}

		rows, err := session.ExecuteRead(ctx, stmt)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to query pattern").With("label", label)
		}
		if len(rows) > 0 {
			match := &PatternMatch{Label: label, Name: rows[0].String("name")}
			logger.Debug().Interface("match", match).Msg("Found known pattern")
			return match, nil
		}
	}

	return nil, nil
}
