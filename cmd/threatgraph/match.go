package main

import (
	"io/ioutil"
	"strings"

	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/m-mizutani/threatgraph/pkg/service"
	"github.com/spf13/cobra"
)

type matchResult struct {
	Matched bool                  `json:"matched"`
	Match   *service.PatternMatch `json:"match,omitempty"`
}

func newMatchCommand(args *arguments.Arguments) *cobra.Command {
	var alert bool

	cmd := &cobra.Command{
		Use:   "match [TEXT...]",
		Short: "Check whether text mentions a known technique or indicator",
		RunE: func(cmd *cobra.Command, texts []string) error {
			if err := args.Validate(); err != nil {
				return err
			}

			text := strings.Join(texts, " ")
			if len(texts) == 0 {
				raw, err := ioutil.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "Failed to read text")
				}
				text = string(raw)
			}

			svc, err := args.PatternService(cmd.Context())
			if err != nil {
				return err
			}
			match, err := svc.FindKnownPattern(cmd.Context(), text)
			if err != nil {
				return err
			}

			if alert && match != nil {
				alertSvc := args.AlertService()
				if alertSvc == nil {
					return errors.New("SLACK_WEBHOOK_URL is required for --alert")
				}
				if err := alertSvc.EmitMatch(text, match); err != nil {
					return err
				}
			}

			return writeJSON(cmd.OutOrStdout(), &matchResult{Matched: match != nil, Match: match})
		},
	}

	cmd.Flags().BoolVar(&alert, "alert", false, "Post matched pattern to Slack")
	return cmd
}
