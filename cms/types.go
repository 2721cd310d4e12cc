package cms

import (
	"encoding/json"
	"strconv"
)

// Ref is a content version advertised by the API root.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

// APIRoot is the subset of the API root document the client uses.
type APIRoot struct {
	Refs []Ref `json:"refs"`
}

// MasterRef returns the published ref, or "" if none is listed.
func (a APIRoot) MasterRef() string {
	for _, r := range a.Refs {
		if r.IsMasterRef {
			return r.Ref
		}
	}
	return ""
}

// Document is a single CMS document. Data is left raw so each document type
// decodes its own fields.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href"`
	Tags                 []string        `json:"tags"`
	Lang                 string          `json:"lang"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	LastPublicationDate  *string         `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// Response is one page of query results. NextPage is nil on the last page.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// QueryOptions tune a Query.
type QueryOptions struct {
	Fetch     []string // e.g. "posts.title"
	PageSize  int
	Page      int
	Orderings string // e.g. "[document.first_publication_date desc]"
	Lang      string
	Ref       string // empty means the master ref
}

// At builds an equality predicate, e.g. At("document.type", "posts").
func At(path, value string) string {
	return "[at(" + path + "," + strconv.Quote(value) + ")]"
}
