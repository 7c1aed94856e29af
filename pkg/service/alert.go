package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/errors"

	"github.com/slack-go/slack"
)

type AlertServiceArguments struct {
	SlackIncomingWebhookURL string
	HTTPClient              adaptor.HTTPClient
}

type AlertService struct {
	args *AlertServiceArguments
}

func NewAlertService(args *AlertServiceArguments) *AlertService {
	return &AlertService{
		args: args,
	}
}

// Up to 3 items of each kind in slack message
const (
	maxItemDisplaySlack = 3
	maxExcerptSlack     = 256
)

// truncate cuts s to n runes and appends "..." if cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func defang(s string) string {
	return strings.Replace(s, ".", "[.]", -1)
}

func newField(title, value string) *slack.TextBlockObject {
	return slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*%s*\n%s", title, value), false, false)
}

func newHeader(title string) slack.Block {
	return slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", title, true, false))
}

func newSection(text string, fields ...*slack.TextBlockObject) slack.Block {
	if len(fields) == 0 {
		fields = nil
	}
	return slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), fields, nil)
}

// EmitRun posts summary of a persist call.
func (x *AlertService) EmitRun(run *threatgraph.RunRecord) error {
	icon := ":white_check_mark:"
	if !run.Succeeded() {
		icon = ":warning:"
	}

	blocks := []slack.Block{
		newHeader(fmt.Sprintf("%s Threat intelligence persisted: %s", icon, run.RunID)),
		newSection("*Summary*",
			newField("Threats", fmt.Sprintf("%d", run.ThreatCount)),
			newField("Nodes", fmt.Sprintf("%d", run.NodeCount)),
			newField("Edges", fmt.Sprintf("%d", run.EdgeCount)),
			newField("CreatedAt", run.CreatedTime().Format("2006-01-02 15:04:05")),
		),
		slack.NewDividerBlock(),
	}

	for i, name := range run.Threats {
		if i >= maxItemDisplaySlack {
			blocks = append(blocks, newSection(fmt.Sprintf("... and %d more", len(run.Threats)-i)))
			break
		}
		blocks = append(blocks, newSection(fmt.Sprintf("*%s*", name)))
	}

	if len(run.Failed) > 0 {
		blocks = append(blocks, slack.NewDividerBlock())
		blocks = append(blocks, newSection("*Failed*", newField("Threats", strings.Join(run.Failed, "\n"))))
	}

	return x.post(slack.NewBlockMessage(blocks...))
}

// EmitMatch posts an alert that text mentions a known pattern.
func (x *AlertService) EmitMatch(text string, match *PatternMatch) error {
	if match == nil {
		return errors.New("PatternMatch is required to emit alert")
	}

	excerpt := truncate(text, maxExcerptSlack)

	title := fmt.Sprintf(":alert: Known %s found: %s", match.Label, defang(match.Name))
	blocks := []slack.Block{
		newHeader(title),
		slack.NewDividerBlock(),
		newSection("*Matched pattern*",
			newField("Label", string(match.Label)),
			newField("Name", defang(match.Name)),
		),
		newSection("*Text*\n" + defang(excerpt)),
	}

	return x.post(slack.NewBlockMessage(blocks...))
}

func (x *AlertService) post(msg slack.Message) error {
	if x.args.HTTPClient == nil {
		return errors.New("HTTPClient is required in AlertServiceArguments to emit Slack, but not set")
	}
	if x.args.SlackIncomingWebhookURL == "" {
		return errors.New("SlackIncomingWebhookURL is required in AlertServiceArguments to emit Slack, but not set")
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal slack message").With("msg", msg)
	}

	req, err := http.NewRequest("POST", x.args.SlackIncomingWebhookURL, bytes.NewBuffer(raw))
	if err != nil {
		return errors.Wrap(err, "Failed to create a new HTTP request to Slack")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.args.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "Failed to post message to slack in communication").With("msg", msg)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return errors.New("Failed to post message to slack in API").
			With("code", resp.StatusCode).With("body", string(body))
	}

	return nil
}
