package main

import (
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/report"
	"github.com/spf13/cobra"
)

func newParseCommand() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "parse [FILE]",
		Short: "Convert an analysis report into JSON lines of threats",
		Long: `Convert a "**<name> Comprehensive Report**" style report into threats and
print them as JSON lines, which persist command accepts. A report without
recognizable content becomes one "Unknown Threat" for --query.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			var (
				raw []byte
				err error
			)
			if len(files) == 0 || files[0] == "-" {
				raw, err = ioutil.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = ioutil.ReadFile(filepath.Clean(files[0]))
			}
			if err != nil {
				return errors.Wrap(err, "Failed to read report")
			}

			w := threatgraph.NewThreatWriter(cmd.OutOrStdout())
			for _, threat := range report.ParseOrUnknown(string(raw), query, time.Now()) {
				if _, err := w.Write(threat); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Query of the report, used for unknown threat")
	return cmd
}
