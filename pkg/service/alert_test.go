package service_test

import (
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/graph"
	"github.com/m-mizutani/threatgraph/pkg/mock"
	"github.com/m-mizutani/threatgraph/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertServiceSlackIntegration(t *testing.T) {
	url, ok := os.LookupEnv("TEST_SLACK_WEBHOOK_URL")
	if !ok {
		t.Skip("TEST_SLACK_WEBHOOK_URL is not set")
	}

	alertSvc := service.NewAlertService(&service.AlertServiceArguments{
		SlackIncomingWebhookURL: url,
		HTTPClient:              &http.Client{},
	})

	require.NoError(t, alertSvc.EmitMatch("beacon to evil.example.com", &service.PatternMatch{
		Label: graph.NodeIOC,
		Name:  "evil.example.com",
	}))
}

func TestAlertServiceWithMock(t *testing.T) {
	t.Run("run summary is posted to webhook", func(t *testing.T) {
		client := &mock.HTTPClient{RespCode: http.StatusOK}
		svc := service.NewAlertService(&service.AlertServiceArguments{
			SlackIncomingWebhookURL: "https://hooks.slack.com/services/xxx",
			HTTPClient:              client,
		})

		err := svc.EmitRun(&threatgraph.RunRecord{
			RunID:       "run-1",
			CreatedAt:   time.Now().Unix(),
			Threats:     []string{"a", "b", "c", "d"},
			Failed:      []string{"d"},
			ThreatCount: 3,
		})
		require.NoError(t, err)
		require.Equal(t, 1, len(client.Requests))
		assert.Equal(t, "https://hooks.slack.com/services/xxx", client.Requests[0].URL.String())
		assert.Contains(t, string(client.Bodies[0]), "run-1")
		assert.Contains(t, string(client.Bodies[0]), "and 1 more")
	})

	t.Run("matched name is defanged", func(t *testing.T) {
		client := &mock.HTTPClient{RespCode: http.StatusOK}
		svc := service.NewAlertService(&service.AlertServiceArguments{
			SlackIncomingWebhookURL: "https://hooks.slack.com/services/xxx",
			HTTPClient:              client,
		})

		require.NoError(t, svc.EmitMatch("beacon to evil.example.com", &service.PatternMatch{
			Label: graph.NodeIOC,
			Name:  "evil.example.com",
		}))
		require.Equal(t, 1, len(client.Bodies))
		assert.Contains(t, string(client.Bodies[0]), "evil[.]example[.]com")
		assert.NotContains(t, string(client.Bodies[0]), "evil.example.com")
	})

	t.Run("long text is cut on character boundary", func(t *testing.T) {
		client := &mock.HTTPClient{RespCode: http.StatusOK}
		svc := service.NewAlertService(&service.AlertServiceArguments{
			SlackIncomingWebhookURL: "https://hooks.slack.com/services/xxx",
			HTTPClient:              client,
		})

		text := "x" + strings.Repeat("あ", 300)
		require.NoError(t, svc.EmitMatch(text, &service.PatternMatch{Label: graph.NodeTTP, Name: "あ"}))
		require.Equal(t, 1, len(client.Bodies))

		body := string(client.Bodies[0])
		assert.True(t, utf8.ValidString(body))
		assert.NotContains(t, body, `\ufffd`)
		assert.Contains(t, body, "x"+strings.Repeat("あ", 255)+"...")
		assert.NotContains(t, body, strings.Repeat("あ", 256))
	})

	t.Run("error status of slack is returned", func(t *testing.T) {
		client := &mock.HTTPClient{RespCode: http.StatusBadRequest, RespBody: "invalid_blocks"}
		svc := service.NewAlertService(&service.AlertServiceArguments{
			SlackIncomingWebhookURL: "https://hooks.slack.com/services/xxx",
			HTTPClient:              client,
		})
		assert.Error(t, svc.EmitRun(&threatgraph.RunRecord{RunID: "run-1"}))
	})

	t.Run("webhook URL is required", func(t *testing.T) {
		svc := service.NewAlertService(&service.AlertServiceArguments{HTTPClient: &mock.HTTPClient{}})
		assert.Error(t, svc.EmitRun(&threatgraph.RunRecord{RunID: "run-1"}))
	})
}
