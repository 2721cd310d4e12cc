// Package post holds the view-facing post types and decodes them from CMS
// documents.
package post

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/eringen/spacetraveling/readtime"
	"github.com/eringen/spacetraveling/richtext"
)

// DocumentType is the CMS custom type that holds blog posts.
const DocumentType = "posts"

// SummaryFields limits list queries to the fields a Summary needs.
var SummaryFields = []string{"posts.title", "posts.subtitle", "posts.author"}

// Summary is a post as shown in the list. Identity is UID.
type Summary struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
}

// Banner is the post header image.
type Banner struct {
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Hash identifies the banner image by its source URL. It is empty when
// there is no banner.
func (b Banner) Hash() string {
	if b.URL == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(b.URL))
	return hex.EncodeToString(sum[:])
}

// Version is a short form of Hash for cache-busting URLs.
func (b Banner) Version() string {
	h := b.Hash()
	if len(h) > 12 {
		h = h[:12]
	}
	return h
}

// Section is one content group: a heading and its body.
type Section struct {
	Heading string          `json:"heading"`
	Body    richtext.Blocks `json:"body"`
}

// Detail is a full post.
type Detail struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	LastPublicationDate  *time.Time `json:"last_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Banner               Banner     `json:"banner"`
	Author               string     `json:"author"`
	Content              []Section  `json:"content"`
}

// ReadingBlocks narrows the content to what the reading-time estimate needs.
func (d Detail) ReadingBlocks() []readtime.Block {
	blocks := make([]readtime.Block, 0, len(d.Content))
	for _, s := range d.Content {
		body := make([]readtime.Fragment, 0, len(s.Body))
		for _, b := range s.Body {
			body = append(body, readtime.Fragment{Text: b.Text})
		}
		blocks = append(blocks, readtime.Block{Heading: s.Heading, Body: body})
	}
	return blocks
}

// ReadingTime estimates the words and minutes needed to read the post.
func (d Detail) ReadingTime() readtime.Estimate {
	return readtime.Of(d.ReadingBlocks())
}

// Summary returns the list view of the post.
func (d Detail) Summary() Summary {
	return Summary{
		UID:                  d.UID,
		FirstPublicationDate: d.FirstPublicationDate,
		Title:                d.Title,
		Subtitle:             d.Subtitle,
		Author:               d.Author,
	}
}

// Page is one page of summaries. An empty NextPage means there are no
// further pages.
type Page struct {
	Results  []Summary `json:"results"`
	NextPage string    `json:"next_page"`
}

// HasMore reports whether another page can be loaded.
func (p Page) HasMore() bool {
	return p.NextPage != ""
}
