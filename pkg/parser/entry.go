package parser

import "encoding/json"

// Entry kinds produced by the parser itself.
const (
	KindTransaction      = "transaction"
	KindUnknownDirective = "unknown_directive"
)

// TagLinkType tells a tag from a link.
type TagLinkType string

const (
	TagType  TagLinkType = "tag"
	LinkType TagLinkType = "link"
)

// TagLink is a single #tag or ^link token.
type TagLink struct {
	Type  TagLinkType `json:"type"`
	Value string      `json:"value"`
}

// Amount is a number paired with a commodity code.
type Amount struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Posting is a single leg of a transaction. Amount is nil when the
// posting leaves its amount to be inferred.
type Posting struct {
	Account string   `json:"account"`
	Amount  *Amount  `json:"amount,omitempty"`
	Cost    *Amount  `json:"cost,omitempty"`
	Price   *Amount  `json:"price,omitempty"`
	Flag    string   `json:"flag,omitempty"`
	Meta    Metadata `json:"meta"`
}

// Entry is one parsed directive.
//
// Fields holds the schema-driven values keyed by field name. The
// transaction-only members are left zero for other kinds. Tags and Links
// are never nil.
type Entry struct {
	Kind      string
	Date      string
	Meta      Metadata
	Fields    map[string]any
	Flag      string
	Payee     *string
	Narration string
	Postings  []Posting
	Tags      []string
	Links     []string
}

// Location returns the "<source>:<line>" stamp of the entry.
func (e Entry) Location() string {
	s, _ := e.Meta["location"].AsString()
	return s
}

// Warning returns the recovery warning of an unknown directive.
func (e Entry) Warning() string {
	s, _ := e.Meta["warning"].AsString()
	return s
}

// Field returns a schema field value.
func (e Entry) Field(name string) (any, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// IsTransaction reports whether the entry is a transaction.
func (e Entry) IsTransaction() bool {
	return e.Kind == KindTransaction
}

// MarshalJSON renders the entry as a flat object: schema fields sit next to
// kind, date and meta instead of under a nested key.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+9)
	for k, v := range e.Fields {
		out[k] = v
	}

	out["kind"] = e.Kind
	out["date"] = e.Date
	out["meta"] = nonNilMeta(e.Meta)
	out["tags"] = nonNilStrings(e.Tags)
	out["links"] = nonNilStrings(e.Links)

	if e.IsTransaction() {
		postings := e.Postings
		if postings == nil {
			postings = []Posting{}
		}
		out["flag"] = e.Flag
		out["narration"] = e.Narration
		out["postings"] = postings
		if e.Payee != nil {
			out["payee"] = *e.Payee
		}
	}
	return json.Marshal(out)
}

// MarshalJSON keeps an absent posting meta as an empty object.
func (p Posting) MarshalJSON() ([]byte, error) {
	type plain Posting
	out := plain(p)
	out.Meta = nonNilMeta(p.Meta)
	return json.Marshal(out)
}

// Clone returns a copy of the entry whose postings can be modified without
// touching the original.
func (e Entry) Clone() Entry {
	if e.Postings != nil {
		postings := make([]Posting, len(e.Postings))
		copy(postings, e.Postings)
		e.Postings = postings
	}
	return e
}

func nonNilMeta(m Metadata) Metadata {
	if m == nil {
		return Metadata{}
	}
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
