package main

import (
	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/spf13/cobra"
)

func newVerifyCommand(args *arguments.Arguments) *cobra.Command {
	return &cobra.Command{
		Use:   "verify RUN_ID",
		Short: "Compare recorded counts of a run with the graph",
		Long:  "Compare node and edge counts recorded in the run ledger (RUN_TABLE_NAME) with the graph.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if err := args.Validate(); err != nil {
				return err
			}
			runSvc, err := args.RunService()
			if err != nil {
				return err
			}
			if runSvc == nil {
				return errors.New("RUN_TABLE_NAME is required for verify")
			}

			runID := threatgraph.RunID(argv[0])
			run, err := runSvc.GetRun(runID)
			if err != nil {
				return err
			}
			if run == nil {
				return errors.New("Run is not found").With("run_id", runID)
			}

			svc, err := args.ThreatService(cmd.Context())
			if err != nil {
				return err
			}
			v, err := svc.Verify(cmd.Context(), run)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), v); err != nil {
				return err
			}

			if !v.OK() {
				return errors.New("Graph does not match run record").With("verification", v)
			}
			return nil
		},
	}
}
