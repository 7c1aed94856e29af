package main

import (
	"encoding/json"
	"io"

	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel  string
	writeMode string
}

// NewCommand builds root command. args is shared by all subcommands and is
// validated only by commands that access the graph.
func NewCommand(args *arguments.Arguments) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "threatgraph",
		Short:         "Persist and query threat intelligence in Neo4j",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if opts.logLevel != "" {
				logging.SetLevel(opts.logLevel)
			}
			if opts.writeMode != "" {
				args.GraphWriteMode = opts.writeMode
			}
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "", "Log level [trace|debug|info|warn|error]")
	cmd.PersistentFlags().StringVarP(&opts.writeMode, "mode", "m", "", "Write mode of threat node [create|merge] (default: $GRAPH_WRITE_MODE or create)")

	cmd.AddCommand(
		newPersistCommand(args),
		newParseCommand(),
		newMatchCommand(args),
		newCountCommand(args),
		newVerifyCommand(args),
		newSchemaCommand(args),
	)

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "Failed to write JSON")
	}
	return nil
}
