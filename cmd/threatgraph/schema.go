package main

import (
	"fmt"

	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/spf13/cobra"
)

func newSchemaCommand(args *arguments.Arguments) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show labels, relationship types and properties of the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := args.Validate(); err != nil {
				return err
			}
			svc, err := args.SchemaService(cmd.Context())
			if err != nil {
				return err
			}
			schema, err := svc.Schema(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), schema)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), schema.Text())
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
