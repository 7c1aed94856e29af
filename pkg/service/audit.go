package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/adaptor"
	"github.com/m-mizutani/threatgraph/pkg/errors"
)

const auditTimeFormat = "20060102_150405"

// AuditService saves JSON output and text report of threats for each run.
type AuditService struct {
	store adaptor.ObjectStore
}

func NewAuditService(store adaptor.ObjectStore) *AuditService {
	return &AuditService{store: store}
}

// AuditFiles is locations of saved audit outputs.
type AuditFiles struct {
	JSON   string `json:"json"`
	Report string `json:"report"`
}

// AuditFileNames returns names of JSON output and text report for time now.
func AuditFileNames(now time.Time) (string, string) {
	ts := now.Format(auditTimeFormat)
	return fmt.Sprintf("threat_intelligence_output_%s.json", ts),
		fmt.Sprintf("threat_intelligence_report_%s.txt", ts)
}

// Save writes threats as indented JSON array and as text report. runID can be
// empty when threats are saved before persistence.
func (x *AuditService) Save(runID threatgraph.RunID, threats []*threatgraph.Threat, now time.Time) (*AuditFiles, error) {
	if threats == nil {
		threats = []*threatgraph.Threat{}
	}
	jsonName, reportName := AuditFileNames(now)

	raw, err := json.MarshalIndent(threats, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "Failed to marshal threats")
	}

	var files AuditFiles
	if files.JSON, err = x.store.Put(jsonName, raw); err != nil {
		return nil, err
	}
	if files.Report, err = x.store.Put(reportName, []byte(RenderReport(runID, threats))); err != nil {
		return nil, err
	}

	logger.Info().Interface("files", files).Int("threats", len(threats)).Msg("Saved audit outputs")
	return &files, nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

// RenderReport dumps threats field by field in human readable text.
func RenderReport(runID threatgraph.RunID, threats []*threatgraph.Threat) string {
	var b strings.Builder
	if runID != "" {
		fmt.Fprintf(&b, "Run ID: %s\n\n", runID)
	}

	for _, threat := range threats {
		category := "Unknown"
		if len(threat.Tags) > 0 {
			category = threat.Tags[0]
		}
		firstSeen := "Unknown"
		if threat.FirstSeen != nil {
			firstSeen = fmt.Sprintf("%d", threat.FirstSeen.Year())
		}

		fmt.Fprintf(&b, "Threat: %s\n", threat.Name)
		fmt.Fprintf(&b, "Type: %s\n", threat.ThreatType)
		fmt.Fprintf(&b, "Category: %s\n", category)
		fmt.Fprintf(&b, "First Discovered: %s\n", firstSeen)
		fmt.Fprintf(&b, "Confidence: %.2f\n", threat.ConfidenceScore)
		fmt.Fprintf(&b, "Description: %s\n", threat.Description)
		fmt.Fprintf(&b, "Targeted Sectors: %s\n", joinOrNone(threat.TargetedSectors))
		fmt.Fprintf(&b, "Targeted Countries: %s\n", joinOrNone(threat.TargetedCountries))

		b.WriteString("\nIndicators:\n")
		for _, v := range threat.IOCs.Values() {
			fmt.Fprintf(&b, "  - %s (%s)\n", v.Data, v.Type)
		}
		b.WriteString("\nTechniques:\n")
		for _, ttp := range threat.TTPs.Entries() {
			fmt.Fprintf(&b, "  - %s (%s)\n", ttp.Name, ttp.Category)
		}
		b.WriteString("\nThreat Actors:\n")
		for _, actor := range threat.ThreatActors {
			fmt.Fprintf(&b, "  - %s (%s)\n", actor.Name, joinOrNone(actor.Aliases))
		}
		b.WriteString("\nVulnerabilities:\n")
		for _, cve := range threat.CVEs {
			fmt.Fprintf(&b, "  - %s [%s] %s\n", cve.ID, cve.Severity, cve.Description)
		}
		b.WriteString("\nCampaigns:\n")
		for _, campaign := range threat.Campaigns {
			fmt.Fprintf(&b, "  - %s\n", campaign.Name)
		}
		b.WriteString("\nMitigations:\n")
		for _, m := range threat.MitigationRecommendations {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
		b.WriteString("\n")
	}

	return b.String()
}
