package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/graph"
)

// Node is a node in mock Graph.
type Node struct {
	Label graph.NodeKind
	Props map[string]interface{}
}

// Name returns name property of the node.
func (x *Node) Name() string {
	s, _ := x.Props["name"].(string)
	return s
}

// RunID returns run_id property of the node.
func (x *Node) RunID() string {
	s, _ := x.Props["run_id"].(string)
	return s
}

// Edge is a directed edge in mock Graph.
type Edge struct {
	Type  graph.EdgeKind
	From  *Node
	To    *Node
	RunID string
}

// Graph is in-memory graph database. It interprets graph.Statement by Op instead
// of Cypher. A write transaction is all-or-nothing like the real one.
type Graph struct {
	Nodes []*Node
	Edges []*Edge

	// FailOn is called before each write statement. Returning an error aborts
	// the transaction.
	FailOn func(stmt *graph.Statement) error

	Opened int
	Closed int

	mutex sync.Mutex
}

// NewGraph is constructor of mock.Graph
func NewGraph() *Graph {
	return &Graph{}
}

// NewSession satisfies adaptor.GraphSessionFactory
func (x *Graph) NewSession(ctx context.Context) (adaptor.GraphSession, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.Opened++
	return &graphSession{graph: x}, nil
}

// NodesOf returns nodes of kind in insertion order.
func (x *Graph) NodesOf(kind graph.NodeKind) []*Node {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	var nodes []*Node
	for _, node := range x.Nodes {
		if node.Label == kind {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// EdgesOf returns edges of kind in insertion order.
func (x *Graph) EdgesOf(kind graph.EdgeKind) []*Edge {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	var edges []*Edge
	for _, edge := range x.Edges {
		if edge.Type == kind {
			edges = append(edges, edge)
		}
	}
	return edges
}

func copyProps(src interface{}) map[string]interface{} {
	dst := make(map[string]interface{})
	if m, ok := src.(map[string]interface{}); ok {
		for k, v := range m {
			dst[k] = v
		}
	}
	return dst
}

func (x *Graph) snapshot() ([]*Node, []*Edge) {
	nodes := make([]*Node, 0, len(x.Nodes))
	nodeMap := make(map[*Node]*Node, len(x.Nodes))
	for _, node := range x.Nodes {
		c := &Node{Label: node.Label, Props: copyProps(node.Props)}
		nodeMap[node] = c
		nodes = append(nodes, c)
	}

	edges := make([]*Edge, 0, len(x.Edges))
	for _, edge := range x.Edges {
		edges = append(edges, &Edge{
			Type:  edge.Type,
			From:  nodeMap[edge.From],
			To:    nodeMap[edge.To],
			RunID: edge.RunID,
		})
	}
	return nodes, edges
}

// findThreat returns the threat node having value as key property. Among several
// matches, the one with the smallest uid is chosen like ORDER BY uid LIMIT 1.
func (x *Graph) findThreat(key, value string) *Node {
	var found *Node
	var foundUID string
	for _, node := range x.Nodes {
		if node.Label != graph.NodeThreat {
			continue
		}
		if v, ok := node.Props[key].(string); !ok || v != value {
			continue
		}
		if uid, _ := node.Props["uid"].(string); found == nil || uid < foundUID {
			found, foundUID = node, uid
		}
	}
	return found
}

func (x *Graph) apply(stmt *graph.Statement) (graph.WriteSummary, error) {
	var summary graph.WriteSummary
	if x.FailOn != nil {
		if err := x.FailOn(stmt); err != nil {
			return summary, err
		}
	}

	switch stmt.Op {
	case graph.OpCreateThreat:
		x.Nodes = append(x.Nodes, &Node{
			Label: graph.NodeThreat,
			Props: copyProps(stmt.Params[graph.ParamProps]),
		})
		summary.NodesCreated++

	case graph.OpMergeThreat:
		name, _ := stmt.Params[graph.ParamName].(string)
		if node := x.findThreat("name", name); node != nil {
			for k, v := range copyProps(stmt.Params[graph.ParamUpdate]) {
				node.Props[k] = v
			}
		} else {
			x.Nodes = append(x.Nodes, &Node{
				Label: graph.NodeThreat,
				Props: copyProps(stmt.Params[graph.ParamProps]),
			})
			summary.NodesCreated++
		}

	case graph.OpCreateLinked:
		runID, _ := stmt.Params[graph.ParamRunID].(string)
		var threat *Node
		if uid, ok := stmt.Params[graph.ParamThreatUID].(string); ok {
			threat = x.findThreat("uid", uid)
		} else {
			name, _ := stmt.Params[graph.ParamThreatName].(string)
			threat = x.findThreat("name", name)
		}
		if threat == nil {
			return summary, nil // MATCH has no row, then nothing is created
		}
		node := &Node{Label: stmt.Node, Props: copyProps(stmt.Params[graph.ParamProps])}
		x.Nodes = append(x.Nodes, node)
		x.Edges = append(x.Edges, &Edge{
			Type:  stmt.Edge,
			From:  threat,
			To:    node,
			RunID: runID,
		})
		summary.NodesCreated++
		summary.RelationshipsCreated++

	default:
		return summary, errors.New("Not a write statement").With("op", stmt.Op)
	}

	return summary, nil
}

func (x *Graph) read(stmt *graph.Statement) ([]graph.Row, error) {
	switch stmt.Op {
	case graph.OpCountNodes:
		runID, _ := stmt.Params[graph.ParamRunID].(string)
		var n int64
		for _, node := range x.Nodes {
			if node.RunID() == runID && (stmt.Node == "" || node.Label == stmt.Node) {
				n++
			}
		}
		return []graph.Row{{"count": n}}, nil

	case graph.OpCountEdges:
		runID, _ := stmt.Params[graph.ParamRunID].(string)
		var n int64
		for _, edge := range x.Edges {
			if edge.RunID == runID && (stmt.Edge == "" || edge.Type == stmt.Edge) {
				n++
			}
		}
		return []graph.Row{{"count": n}}, nil

	case graph.OpMatchName:
		text, _ := stmt.Params[graph.ParamText].(string)
		for _, node := range x.Nodes {
			if node.Label != stmt.Node {
				continue
			}
			if name := node.Name(); name != "" && strings.Contains(text, name) {
				return []graph.Row{{"name": name}}, nil
			}
		}
		return []graph.Row{}, nil

	case graph.OpLabels:
		var rows []graph.Row
		for _, label := range x.labels() {
			rows = append(rows, graph.Row{"label": label})
		}
		return rows, nil

	case graph.OpRelationshipTypes:
		seen := make(map[string]struct{})
		var types []string
		for _, edge := range x.Edges {
			if _, ok := seen[string(edge.Type)]; !ok {
				seen[string(edge.Type)] = struct{}{}
				types = append(types, string(edge.Type))
			}
		}
		sort.Strings(types)
		var rows []graph.Row
		for _, t := range types {
			rows = append(rows, graph.Row{"type": t})
		}
		return rows, nil

	case graph.OpNodeProperties:
		var rows []graph.Row
		for _, node := range x.Nodes {
			for key := range node.Props {
				rows = append(rows, graph.Row{
					"labels":   []interface{}{string(node.Label)},
					"property": key,
				})
			}
		}
		return rows, nil
	}

	return nil, errors.New("Not a read statement").With("op", stmt.Op)
}

func (x *Graph) labels() []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, node := range x.Nodes {
		if _, ok := seen[string(node.Label)]; !ok {
			seen[string(node.Label)] = struct{}{}
			labels = append(labels, string(node.Label))
		}
	}
	sort.Strings(labels)
	return labels
}

type graphSession struct {
	graph  *Graph
	closed bool
}

func (x *graphSession) ExecuteWrite(ctx context.Context, stmts []*graph.Statement) (*graph.WriteSummary, error) {
	if x.closed {
		return nil, errors.New("Session is already closed")
	}

	x.graph.mutex.Lock()
	defer x.graph.mutex.Unlock()

	var summary graph.WriteSummary
	nodes, edges := x.graph.snapshot()
	for i, stmt := range stmts {
		counters, err := x.graph.apply(stmt)
		if err != nil {
			x.graph.Nodes, x.graph.Edges = nodes, edges
			return nil, errors.Wrap(err, "Write transaction failed").With("i", i)
		}
		summary.Add(counters)
	}
	return &summary, nil
}

func (x *graphSession) ExecuteRead(ctx context.Context, stmt *graph.Statement) ([]graph.Row, error) {
	if x.closed {
		return nil, errors.New("Session is already closed")
	}

	x.graph.mutex.Lock()
	defer x.graph.mutex.Unlock()
	return x.graph.read(stmt)
}

func (x *graphSession) Close(ctx context.Context) error {
	if x.closed {
		return nil
	}
	x.closed = true

	x.graph.mutex.Lock()
	defer x.graph.mutex.Unlock()
	x.graph.Closed++
	return nil
}
