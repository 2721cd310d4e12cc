package post

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/eringen/spacetraveling/cms"
	"github.com/eringen/spacetraveling/richtext"
)

// publicationLayouts lists the timestamp formats the CMS has been seen to emit.
var publicationLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

type summaryData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

type detailData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
	Banner   struct {
		URL        string `json:"url"`
		Alt        string `json:"alt"`
		Dimensions struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"dimensions"`
	} `json:"banner"`
	Content []struct {
		Heading string          `json:"heading"`
		Body    richtext.Blocks `json:"body"`
	} `json:"content"`
}

// ParseDate parses a CMS publication timestamp. A nil or empty value is nil.
func ParseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range publicationLayouts {
		t, err := time.Parse(layout, *raw)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("post: parse date %q: %w", *raw, lastErr)
}

func decodeData(doc cms.Document, dst any) error {
	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(doc.Data, dst); err != nil {
		return fmt.Errorf("post: decode %s data: %w", doc.UID, err)
	}
	return nil
}

// SummaryFromDocument shapes a list document into a Summary.
func SummaryFromDocument(doc cms.Document) (Summary, error) {
	var data summaryData
	if err := decodeData(doc, &data); err != nil {
		return Summary{}, err
	}
	published, err := ParseDate(doc.FirstPublicationDate)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		UID:                  doc.UID,
		FirstPublicationDate: published,
		Title:                data.Title,
		Subtitle:             data.Subtitle,
		Author:               data.Author,
	}, nil
}

// DetailFromDocument shapes a full document into a Detail.
func DetailFromDocument(doc cms.Document) (Detail, error) {
	var data detailData
	if err := decodeData(doc, &data); err != nil {
		return Detail{}, err
	}
	first, err := ParseDate(doc.FirstPublicationDate)
	if err != nil {
		return Detail{}, err
	}
	last, err := ParseDate(doc.LastPublicationDate)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{
		UID:                  doc.UID,
		FirstPublicationDate: first,
		LastPublicationDate:  last,
		Title:                data.Title,
		Subtitle:             data.Subtitle,
		Author:               data.Author,
		Banner: Banner{
			URL:    data.Banner.URL,
			Alt:    data.Banner.Alt,
			Width:  data.Banner.Dimensions.Width,
			Height: data.Banner.Dimensions.Height,
		},
	}
	for _, c := range data.Content {
		d.Content = append(d.Content, Section{Heading: c.Heading, Body: c.Body})
	}
	return d, nil
}

// PageFromResponse shapes a query response into a Page, keeping result order.
func PageFromResponse(resp *cms.Response) (Page, error) {
	page := Page{Results: make([]Summary, 0, len(resp.Results))}
	if resp.NextPage != nil {
		page.NextPage = *resp.NextPage
	}
	for _, doc := range resp.Results {
		s, err := SummaryFromDocument(doc)
		if err != nil {
			return Page{}, err
		}
		page.Results = append(page.Results, s)
	}
	return page, nil
}
