package threatgraph

// Value is a typed indicator of compromise.
type Value struct {
	Data string    `json:"value"`
	Type ValueType `json:"type"`
}

type ValueType string

const (
	ValueIPAddr     ValueType = "ipaddr"
	ValueDomainName ValueType = "domain"
	ValueURL        ValueType = "url"
	ValueFileHash   ValueType = "filehash"
	ValueEmail      ValueType = "email"
)
