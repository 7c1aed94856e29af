package threatgraph

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// ErrEmptyName is returned by Threat.Validate when name is empty.
var ErrEmptyName = errors.New("Threat name is empty")

// ErrNilThreat is returned for a null entry in a list of threats.
var ErrNilThreat = errors.New("Threat is nil")

// IOCSet is indicators of compromise grouped by category. Each category is a set.
type IOCSet struct {
	IPAddresses    []string `json:"ip_addresses" yaml:"ip_addresses"`
	Domains        []string `json:"domains" yaml:"domains"`
	URLs           []string `json:"urls" yaml:"urls"`
	FileHashes     []string `json:"file_hashes" yaml:"file_hashes"`
	EmailAddresses []string `json:"email_addresses" yaml:"email_addresses"`
}

// Values flattens the set into typed values. Order is IP addresses, domains, URLs,
// file hashes and email addresses.
func (x *IOCSet) Values() []Value {
	var values []Value
	add := func(t ValueType, items []string) {
		for _, item := range items {
			values = append(values, Value{Data: item, Type: t})
		}
	}
	add(ValueIPAddr, x.IPAddresses)
	add(ValueDomainName, x.Domains)
	add(ValueURL, x.URLs)
	add(ValueFileHash, x.FileHashes)
	add(ValueEmail, x.EmailAddresses)
	return values
}

// Len returns number of all indicators.
func (x *IOCSet) Len() int {
	return len(x.IPAddresses) + len(x.Domains) + len(x.URLs) + len(x.FileHashes) + len(x.EmailAddresses)
}

func (x *IOCSet) normalize() {
	x.IPAddresses = normalizeSet(x.IPAddresses)
	x.Domains = normalizeSet(x.Domains)
	x.URLs = normalizeSet(x.URLs)
	x.FileHashes = normalizeSet(x.FileHashes)
	x.EmailAddresses = normalizeSet(x.EmailAddresses)
}

// TTPCategory is category of tactics, techniques and procedures.
type TTPCategory string

const (
	TTPTactic       TTPCategory = "tactic"
	TTPTechnique    TTPCategory = "technique"
	TTPSubTechnique TTPCategory = "sub_technique"
	TTPProcedure    TTPCategory = "procedure"
)

// TTP is a single technique entry with its category.
type TTP struct {
	Name     string
	Category TTPCategory
}

// TTPSet is attacker behavior grouped by category. Each category is a set.
type TTPSet struct {
	Tactics       []string `json:"tactics" yaml:"tactics"`
	Techniques    []string `json:"techniques" yaml:"techniques"`
	SubTechniques []string `json:"sub_techniques" yaml:"sub_techniques"`
	Procedures    []string `json:"procedures" yaml:"procedures"`
}

// Entries flattens the set. Order is tactics, techniques, sub-techniques and procedures.
func (x *TTPSet) Entries() []TTP {
	var entries []TTP
	add := func(c TTPCategory, items []string) {
		for _, item := range items {
			entries = append(entries, TTP{Name: item, Category: c})
		}
	}
	add(TTPTactic, x.Tactics)
	add(TTPTechnique, x.Techniques)
	add(TTPSubTechnique, x.SubTechniques)
	add(TTPProcedure, x.Procedures)
	return entries
}

// Len returns number of all entries.
func (x *TTPSet) Len() int {
	return len(x.Tactics) + len(x.Techniques) + len(x.SubTechniques) + len(x.Procedures)
}

func (x *TTPSet) normalize() {
	x.Tactics = normalizeSet(x.Tactics)
	x.Techniques = normalizeSet(x.Techniques)
	x.SubTechniques = normalizeSet(x.SubTechniques)
	x.Procedures = normalizeSet(x.Procedures)
}

type ThreatActor struct {
	Name        string   `json:"name" yaml:"name"`
	Aliases     []string `json:"aliases" yaml:"aliases"`
	Description string   `json:"description" yaml:"description"`
	Motivation  string   `json:"motivation" yaml:"motivation"`
	Country     string   `json:"country" yaml:"country"`
}

type CVE struct {
	ID            string     `json:"id" yaml:"id"`
	Description   string     `json:"description" yaml:"description"`
	Severity      string     `json:"severity" yaml:"severity"`
	PublishedDate *time.Time `json:"published_date" yaml:"published_date"`
}

type Campaign struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	StartDate   *time.Time `json:"start_date" yaml:"start_date"`
	EndDate     *time.Time `json:"end_date" yaml:"end_date"`
}

// Threat is a unit of persisted intelligence. Name is not unique.
type Threat struct {
	Name         string        `json:"name" yaml:"name"`
	Description  string        `json:"description" yaml:"description"`
	ThreatType   string        `json:"threat_type" yaml:"threat_type"`
	IOCs         IOCSet        `json:"iocs" yaml:"iocs"`
	TTPs         TTPSet        `json:"ttps" yaml:"ttps"`
	ThreatActors []ThreatActor `json:"threat_actors" yaml:"threat_actors"`
	CVEs         []CVE         `json:"cves" yaml:"cves"`
	Campaigns    []Campaign    `json:"campaigns" yaml:"campaigns"`

	TargetedSectors           []string   `json:"targeted_sectors" yaml:"targeted_sectors"`
	TargetedCountries         []string   `json:"targeted_countries" yaml:"targeted_countries"`
	FirstSeen                 *time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen                  *time.Time `json:"last_seen" yaml:"last_seen"`
	ConfidenceScore           float64    `json:"confidence_score" yaml:"confidence_score"`
	DataSources               []string   `json:"data_sources" yaml:"data_sources"`
	MitigationRecommendations []string   `json:"mitigation_recommendations" yaml:"mitigation_recommendations"`
	RelatedThreats            []string   `json:"related_threats" yaml:"related_threats"`
	Tags                      []string   `json:"tags" yaml:"tags"`
	References                []string   `json:"references" yaml:"references"`
}

// Validate checks preconditions of persistence.
func (x *Threat) Validate() error {
	if x == nil {
		return ErrNilThreat
	}
	if strings.TrimSpace(x.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Normalize replaces nil lists with empty ones, trims and dedupes set categories,
// drops actors, CVEs and campaigns without identifier and clamps confidence score
// into [0, 1].
func (x *Threat) Normalize() {
	x.Name = strings.TrimSpace(x.Name)
	x.IOCs.normalize()
	x.TTPs.normalize()

	actors := make([]ThreatActor, 0, len(x.ThreatActors))
	for _, actor := range x.ThreatActors {
		actor.Name = strings.TrimSpace(actor.Name)
		if actor.Name == "" {
			continue
		}
		actor.Aliases = normalizeSet(actor.Aliases)
		actors = append(actors, actor)
	}
	x.ThreatActors = actors

	cves := make([]CVE, 0, len(x.CVEs))
	for _, cve := range x.CVEs {
		cve.ID = strings.TrimSpace(cve.ID)
		if cve.ID == "" {
			continue
		}
		cves = append(cves, cve)
	}
	x.CVEs = cves

	campaigns := make([]Campaign, 0, len(x.Campaigns))
	for _, campaign := range x.Campaigns {
		campaign.Name = strings.TrimSpace(campaign.Name)
		if campaign.Name == "" {
			continue
		}
		campaigns = append(campaigns, campaign)
	}
	x.Campaigns = campaigns

	x.TargetedSectors = normalizeList(x.TargetedSectors)
	x.TargetedCountries = normalizeList(x.TargetedCountries)
	x.DataSources = normalizeList(x.DataSources)
	x.MitigationRecommendations = normalizeList(x.MitigationRecommendations)
	x.RelatedThreats = normalizeList(x.RelatedThreats)
	x.Tags = normalizeList(x.Tags)
	x.References = normalizeList(x.References)

	x.ConfidenceScore = clampScore(x.ConfidenceScore)
}

// NewUnknownThreat returns a placeholder threat for a query that found nothing.
func NewUnknownThreat(query string, now time.Time) *Threat {
	ts := now
	threat := &Threat{
		Name:        fmt.Sprintf("Unknown Threat - %s", now.Format("2006-01-02 15:04:05")),
		Description: fmt.Sprintf("No specific threat identified for query: %s", query),
		ThreatType:  "Unknown",
		FirstSeen:   &ts,
		LastSeen:    &ts,
	}
	threat.Normalize()
	return threat
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func normalizeSet(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
