package main

import (
	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/m-mizutani/threatgraph/pkg/graph"
	"github.com/spf13/cobra"
)

type countResult struct {
	RunID threatgraph.RunID `json:"run_id"`
	Nodes map[string]int    `json:"nodes"`
	Edges map[string]int    `json:"edges"`
}

func newCountCommand(args *arguments.Arguments) *cobra.Command {
	return &cobra.Command{
		Use:   "count RUN_ID",
		Short: "Count nodes and edges of a run by kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if err := args.Validate(); err != nil {
				return err
			}
			svc, err := args.ThreatService(cmd.Context())
			if err != nil {
				return err
			}

			result := &countResult{
				RunID: threatgraph.RunID(argv[0]),
				Nodes: make(map[string]int),
				Edges: make(map[string]int),
			}
			for _, kind := range graph.NodeKinds {
				n, err := svc.CountNodes(cmd.Context(), result.RunID, kind)
				if err != nil {
					return err
				}
				result.Nodes[string(kind)] = n
			}
			for _, kind := range graph.EdgeKinds {
				n, err := svc.CountEdges(cmd.Context(), result.RunID, kind)
				if err != nil {
					return err
				}
				result.Edges[string(kind)] = n
			}

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}
