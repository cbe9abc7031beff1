package film

import (
	"net/http"
	"time"
)

// DefaultSource is the value written to the "from" field of every record.
const DefaultSource = "xonline"

// URLEntry is one item of a batch. Only URL is consumed; any other fields
// produced by the link listing are ignored.
type URLEntry struct {
	URL string `json:"url" bson:"url"`
}

// Document is a record that can be upserted keyed by its URL.
type Document interface {
	DocumentURL() string
}

// Record is the full film document written the first time a URL is seen.
type Record struct {
	From       string    `json:"from" bson:"from"`
	URL        string    `json:"url" bson:"url"`
	Code       string    `json:"code" bson:"code"`
	SearchCode *string   `json:"search_code" bson:"search_code"`
	Count      int       `json:"count" bson:"count"`
	ImgURL     string    `json:"img_url" bson:"img_url"`
	Models     string    `json:"models" bson:"models"`
	Title      string    `json:"title" bson:"title"`
	Tags       []string  `json:"tags" bson:"tags"`
	UpdateDate time.Time `json:"update_date" bson:"update_date"`
}

// DocumentURL implements Document.
func (r Record) DocumentURL() string { return r.URL }

// UpdateRecord refreshes only the volatile fields of an existing document so
// previously enriched models and titles are left untouched.
type UpdateRecord struct {
	From       string    `json:"from" bson:"from"`
	URL        string    `json:"url" bson:"url"`
	Count      int       `json:"count" bson:"count"`
	Tags       []string  `json:"tags" bson:"tags"`
	UpdateDate time.Time `json:"update_date" bson:"update_date"`
}

// DocumentURL implements Document.
func (r UpdateRecord) DocumentURL() string { return r.URL }

// Fields holds everything extracted from a single film page.
type Fields struct {
	Code       string
	SearchCode *string
	Count      int
	Models     string
	Title      string
	ImgURL     string
	Tags       []string
}

// CodeInfo is the enrichment returned by a CodeLookup. Nil fields mean the
// lookup had no value.
type CodeInfo struct {
	Model *string
	Title *string
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
