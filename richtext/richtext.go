// Package richtext renders CMS structured text as HTML, either into a buffer
// or as a templ component.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// Block types emitted by the CMS.
const (
	TypeParagraph     = "paragraph"
	TypePreformatted  = "preformatted"
	TypeHeading1      = "heading1"
	TypeHeading2      = "heading2"
	TypeHeading3      = "heading3"
	TypeHeading4      = "heading4"
	TypeHeading5      = "heading5"
	TypeHeading6      = "heading6"
	TypeListItem      = "list-item"
	TypeOrderedItem   = "o-list-item"
	TypeImage         = "image"
	TypeEmbed         = "embed"
	SpanStrong        = "strong"
	SpanEm            = "em"
	SpanHyperlink     = "hyperlink"
	SpanLabel         = "label"
	defaultJoinString = " "
)

// Block is one structured-text element.
type Block struct {
	Type       string     `json:"type"`
	Text       string     `json:"text"`
	Spans      []Span     `json:"spans,omitempty"`
	URL        string     `json:"url,omitempty"`
	Alt        string     `json:"alt,omitempty"`
	Dimensions Dimensions `json:"dimensions,omitempty"`
}

// Dimensions of an image block.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Span marks up [Start, End) of a block's text. Offsets count UTF-16 code
// units, as the CMS editor measures them.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  string   `json:"type"`
	Data  SpanData `json:"data,omitempty"`
}

// SpanData carries hyperlink targets and label names.
type SpanData struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Blocks is an ordered structured-text field.
type Blocks []Block

// AsText joins the text of every block with sep. An empty sep means a space.
func AsText(blocks Blocks, sep string) string {
	if sep == "" {
		sep = defaultJoinString
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, sep)
}

// Component returns a templ.Component that renders blocks as HTML.
func Component(blocks Blocks) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, blocks)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Render writes the HTML representation of blocks to buf.
func Render(buf *bytes.Buffer, blocks Blocks) {
	imageCount := 0
	inList := false
	inOrderedList := false

	flushList := func() {
		if inList {
			buf.WriteString("</ul>")
			inList = false
		}
	}
	flushOrderedList := func() {
		if inOrderedList {
			buf.WriteString("</ol>")
			inOrderedList = false
		}
	}

	for _, b := range blocks {
		switch b.Type {
		case TypeListItem:
			flushOrderedList()
			if !inList {
				buf.WriteString("<ul>")
				inList = true
			}
			buf.WriteString("<li>")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</li>")
			continue
		case TypeOrderedItem:
			flushList()
			if !inOrderedList {
				buf.WriteString("<ol>")
				inOrderedList = true
			}
			buf.WriteString("<li>")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</li>")
			continue
		}
		flushList()
		flushOrderedList()

		switch b.Type {
		case TypeHeading1, TypeHeading2, TypeHeading3, TypeHeading4, TypeHeading5, TypeHeading6:
			tag := "h" + strings.TrimPrefix(b.Type, "heading")
			buf.WriteString("<" + tag + ">")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</" + tag + ">")
		case TypePreformatted:
			buf.WriteString("<pre class=\"code-block\"><code>")
			buf.WriteString(html.EscapeString(b.Text))
			buf.WriteString("</code></pre>")
		case TypeImage:
			writeImage(buf, b, &imageCount)
		case TypeEmbed:
			// embeds carry provider HTML we do not trust; skip them.
		default:
			if b.Text == "" && len(b.Spans) == 0 {
				continue
			}
			buf.WriteString("<p>")
			buf.WriteString(FormatSpans(b.Text, b.Spans))
			buf.WriteString("</p>")
		}
	}
	flushList()
	flushOrderedList()
}

func writeImage(buf *bytes.Buffer, b Block, imageCount *int) {
	if !safeURL(b.URL) {
		return
	}
	*imageCount++
	buf.WriteString("<img src=\"")
	buf.WriteString(html.EscapeString(b.URL))
	buf.WriteString("\" alt=\"")
	buf.WriteString(html.EscapeString(b.Alt))
	buf.WriteString("\"")
	if b.Dimensions.Width > 0 && b.Dimensions.Height > 0 {
		buf.WriteString(" width=\"" + strconv.Itoa(b.Dimensions.Width) + "\"")
		buf.WriteString(" height=\"" + strconv.Itoa(b.Dimensions.Height) + "\"")
	}
	// Only the first image loads eagerly.
	if *imageCount > 1 {
		buf.WriteString(" loading=\"lazy\"")
	}
	buf.WriteString(" decoding=\"async\"/>")
}

type spanEvent struct {
	pos   int
	open  bool
	index int
}

// FormatSpans escapes text and wraps the span ranges (UTF-16 offsets) in
// tags. Overlapping spans are closed and reopened so the output stays well
// nested.
func FormatSpans(text string, spans []Span) string {
	units := utf16.Encode([]rune(text))
	n := len(units)

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > n || s.Start >= s.End {
			continue
		}
		if openTag(s) == "" {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return formatText(text)
	}

	events := make([]spanEvent, 0, 2*len(valid))
	for i, s := range valid {
		events = append(events, spanEvent{pos: s.Start, open: true, index: i})
		events = append(events, spanEvent{pos: s.End, open: false, index: i})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		// Close before open at the same position; wider spans open first.
		if events[i].open != events[j].open {
			return !events[i].open
		}
		a, b := valid[events[i].index], valid[events[j].index]
		if events[i].open {
			return a.End > b.End
		}
		// Innermost span closes first.
		if a.Start != b.Start {
			return a.Start > b.Start
		}
		return events[i].index > events[j].index
	})

	var b strings.Builder
	var stack []int
	last := 0
	for _, ev := range events {
		if ev.pos > last {
			b.WriteString(formatText(string(utf16.Decode(units[last:ev.pos]))))
			last = ev.pos
		}
		if ev.open {
			b.WriteString(openTag(valid[ev.index]))
			stack = append(stack, ev.index)
			continue
		}
		// Pop until the closing span, then reopen whatever was above it.
		var reopen []int
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b.WriteString(closeTag(valid[top]))
			if top == ev.index {
				break
			}
			reopen = append(reopen, top)
		}
		for i := len(reopen) - 1; i >= 0; i-- {
			b.WriteString(openTag(valid[reopen[i]]))
			stack = append(stack, reopen[i])
		}
	}
	if last < n {
		b.WriteString(formatText(string(utf16.Decode(units[last:]))))
	}
	return b.String()
}

func formatText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br/>")
}

func openTag(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "<strong>"
	case SpanEm:
		return "<em>"
	case SpanLabel:
		return "<span class=\"" + html.EscapeString(s.Data.Label) + "\">"
	case SpanHyperlink:
		if !safeURL(s.Data.URL) {
			return ""
		}
		tag := "<a href=\"" + html.EscapeString(s.Data.URL) + "\""
		if s.Data.Target != "" {
			tag += " target=\"" + html.EscapeString(s.Data.Target) + "\" rel=\"noopener noreferrer\""
		}
		return tag + ">"
	}
	return ""
}

func closeTag(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "</strong>"
	case SpanEm:
		return "</em>"
	case SpanLabel:
		return "</span>"
	case SpanHyperlink:
		return "</a>"
	}
	return ""
}

// safeURL allows only http(s) and site-relative URLs.
func safeURL(raw string) bool {
	if raw == "" {
		return false
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
