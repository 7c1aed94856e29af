package adaptor

import (
	"context"
	"time"

	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/graph"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Neo4jConfig is connection setting of Neo4j.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string

	ConnectionTimeout time.Duration
}

// Neo4jDriver owns neo4j driver and hands out sessions via NewSession.
type Neo4jDriver struct {
	driver neo4j.DriverWithContext
	config Neo4jConfig
	tracer trace.Tracer
}

// NewNeo4jDriver creates a driver and verifies connectivity.
func NewNeo4jDriver(ctx context.Context, config Neo4jConfig) (*Neo4jDriver, error) {
	if config.URI == "" {
		return nil, errors.New("Neo4j URI is required")
	}
	if config.ConnectionTimeout == 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	auth := neo4j.BasicAuth(config.Username, config.Password, "")
	driver, err := neo4j.NewDriverWithContext(config.URI, auth, func(c *neo4j.Config) {
		c.ConnectionAcquisitionTimeout = config.ConnectionTimeout
	})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create Neo4j driver").With("uri", config.URI)
	}

	vctx, cancel := context.WithTimeout(ctx, config.ConnectionTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		driver.Close(ctx)
		return nil, errors.Wrap(err, "Failed to verify Neo4j connectivity").With("uri", config.URI)
	}

	return &Neo4jDriver{
		driver: driver,
		config: config,
		tracer: otel.Tracer("threatgraph/adaptor/neo4j"),
	}, nil
}

// NewSession opens a session. It satisfies GraphSessionFactory.
func (x *Neo4jDriver) NewSession(ctx context.Context) (GraphSession, error) {
	return &neo4jSession{
		driver: x,
	}, nil
}

// Close closes the driver and connections held by it.
func (x *Neo4jDriver) Close(ctx context.Context) error {
	if err := x.driver.Close(ctx); err != nil {
		return errors.Wrap(err, "Failed to close Neo4j driver")
	}
	return nil
}

// neo4jSession opens neo4j sessions lazily per access mode and closes them on Close.
type neo4jSession struct {
	driver *Neo4jDriver
	write  neo4j.SessionWithContext
	read   neo4j.SessionWithContext
}

func (x *neo4jSession) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	cfg := neo4j.SessionConfig{
		DatabaseName: x.driver.config.Database,
		AccessMode:   mode,
	}

	if mode == neo4j.AccessModeWrite {
		if x.write == nil {
			x.write = x.driver.driver.NewSession(ctx, cfg)
		}
		return x.write
	}

	if x.read == nil {
		x.read = x.driver.driver.NewSession(ctx, cfg)
	}
	return x.read
}

func (x *neo4jSession) ExecuteWrite(ctx context.Context, stmts []*graph.Statement) (*graph.WriteSummary, error) {
	ctx, span := x.driver.tracer.Start(ctx, "neo4j.execute_write",
		trace.WithAttributes(attribute.Int("statements", len(stmts))))
	defer span.End()

	resp, err := x.session(ctx, neo4j.AccessModeWrite).ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		var summary graph.WriteSummary
		for i, stmt := range stmts {
			result, err := tx.Run(ctx, stmt.Cypher, stmt.Params)
			if err != nil {
				return nil, errors.Wrap(err, "Failed to run write statement").
					With("i", i).With("cypher", stmt.Cypher)
			}
			rs, err := result.Consume(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "Failed to consume write result").
					With("i", i).With("cypher", stmt.Cypher)
			}
			summary.Add(graph.WriteSummary{
				NodesCreated:         rs.Counters().NodesCreated(),
				RelationshipsCreated: rs.Counters().RelationshipsCreated(),
			})
		}
		return &summary, nil
	})

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "Write transaction failed")
	}

	summary := resp.(*graph.WriteSummary)
	span.SetAttributes(
		attribute.Int("nodes_created", summary.NodesCreated),
		attribute.Int("relationships_created", summary.RelationshipsCreated),
	)
	span.SetStatus(codes.Ok, "")
	return summary, nil
}

func (x *neo4jSession) ExecuteRead(ctx context.Context, stmt *graph.Statement) ([]graph.Row, error) {
	ctx, span := x.driver.tracer.Start(ctx, "neo4j.execute_read")
	defer span.End()

	resp, err := x.session(ctx, neo4j.AccessModeRead).ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, stmt.Cypher, stmt.Params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]graph.Row, 0, len(records))
		for _, record := range records {
			rows = append(rows, graph.Row(record.AsMap()))
		}
		return rows, nil
	})

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "Read transaction failed").With("cypher", stmt.Cypher)
	}

	span.SetStatus(codes.Ok, "")
	return resp.([]graph.Row), nil
}

func (x *neo4jSession) Close(ctx context.Context) error {
	var err error
	for _, s := range []neo4j.SessionWithContext{x.write, x.read} {
		if s == nil {
			continue
		}
		if e := s.Close(ctx); e != nil && err == nil {
			err = errors.Wrap(e, "Failed to close Neo4j session")
		}
	}
	x.write, x.read = nil, nil
	return err
}
