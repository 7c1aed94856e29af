package report

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/threatgraph"
)

var (
	ipAddrPattern = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)
	domainPattern = regexp.MustCompile(`\b(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}\b`)
	urlPattern    = regexp.MustCompile(`\bhttps?://[^\s<>"'()\[\]]+`)
	hashPattern   = regexp.MustCompile(`\b[a-fA-F0-9]{32,64}\b`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	cvePattern    = regexp.MustCompile(`CVE-\d{4}-\d+`)
)

func validIPAddr(s string) bool {
	for _, octet := range strings.Split(s, ".") {
		if len(octet) > 1 && octet[0] == '0' {
			return false
		}
		n := 0
		for _, c := range octet {
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

// ExtractIOCs finds indicators in text. Each category keeps first-seen order
// without duplicates. Domains that are only a host of an extracted email address
// are kept as well.
func ExtractIOCs(text string) threatgraph.IOCSet {
	var set threatgraph.IOCSet

	for _, ip := range ipAddrPattern.FindAllString(text, -1) {
		if validIPAddr(ip) {
			set.IPAddresses = append(set.IPAddresses, ip)
		}
	}
	for _, url := range urlPattern.FindAllString(text, -1) {
		set.URLs = append(set.URLs, strings.TrimRight(url, ".,;:"))
	}
	set.Domains = domainPattern.FindAllString(text, -1)
	set.FileHashes = hashPattern.FindAllString(text, -1)
	set.EmailAddresses = emailPattern.FindAllString(text, -1)

	threat := threatgraph.Threat{IOCs: set}
	threat.Normalize()
	return threat.IOCs
}

// ExtractCVEs finds CVE identifiers in text in first-seen order without duplicates.
func ExtractCVEs(text string) []threatgraph.CVE {
	seen := make(map[string]struct{})
	cves := []threatgraph.CVE{}
	for _, id := range cvePattern.FindAllString(text, -1) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cves = append(cves, threatgraph.CVE{ID: id})
	}
	return cves
}
