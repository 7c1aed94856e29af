package adaptor

import (
	"context"

	"github.com/m-mizutani/threatgraph/pkg/graph"
)

// GraphSession is a scoped handle of graph database. It must be closed by the
// caller that acquired it.
type GraphSession interface {
	// ExecuteWrite runs stmts in order within one write transaction and returns
	// counters of the committed transaction.
	ExecuteWrite(ctx context.Context, stmts []*graph.Statement) (*graph.WriteSummary, error)
	// ExecuteRead runs stmt in a read transaction and returns all rows.
	ExecuteRead(ctx context.Context, stmt *graph.Statement) ([]graph.Row, error)
	Close(ctx context.Context) error
}

// GraphSessionFactory acquires a new GraphSession.
type GraphSessionFactory func(ctx context.Context) (GraphSession, error)
