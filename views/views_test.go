package views

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/richtext"
)

var testCfg = SiteConfig{Name: "spacetraveling", URL: "https://blog.example.com", Locale: "pt-BR"}

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 19, 25, 28, 0, time.UTC)
	return &t
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		t      *time.Time
		locale string
		want   string
	}{
		{date(2021, time.March, 25), "pt-BR", "25 mar 2021"},
		{date(2021, time.February, 5), "pt-BR", "05 fev 2021"},
		{date(2020, time.December, 31), "en", "31 Dec 2020"},
		{date(2021, time.August, 1), "fr", "01 ago 2021"},
		{nil, "pt-BR", ""},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.t, tt.locale); got != tt.want {
			t.Errorf("FormatDate(%v, %q) = %q, want %q", tt.t, tt.locale, got, tt.want)
		}
	}
}

func TestHomeWithoutCursorHasNoLoadMore(t *testing.T) {
	page := post.Page{Results: []post.Summary{{UID: "a", Title: "A", Subtitle: "sub", Author: "Ana", FirstPublicationDate: date(2021, time.March, 25)}}}
	got := renderString(t, Home(testCfg, page))
	if strings.Contains(got, "data-load-more") {
		t.Errorf("load-more control rendered without a cursor")
	}
	for _, want := range []string{`href="/post/a/"`, "<strong>A</strong>", "25 mar 2021", "Ana", `<html lang="pt-BR">`} {
		if !strings.Contains(got, want) {
			t.Errorf("Home output missing %q", want)
		}
	}
}

func TestPostListWithCursor(t *testing.T) {
	cursor := "https://repo.cdn.prismic.io/api/v2/documents/search?ref=X&page=2&pageSize=2"
	got := renderString(t, PostList(testCfg, []post.Summary{{UID: "c", Title: "C"}}, cursor))
	if strings.Count(got, "data-load-more") != 1 {
		t.Fatalf("expected one load-more control, got %q", got)
	}
	if !strings.Contains(got, "Carregar mais posts") {
		t.Errorf("missing pt-BR label: %q", got)
	}
	// The cursor is query-escaped, then HTML-escaped.
	if !strings.Contains(got, "/posts/?cursor=https%3A%2F%2Frepo.cdn.prismic.io%2Fapi%2Fv2%2Fdocuments%2Fsearch%3Fref%3DX%26page%3D2%26pageSize%3D2") {
		t.Errorf("cursor not encoded as expected: %q", got)
	}
}

func TestPostCardEscapes(t *testing.T) {
	got := renderString(t, PostCard(testCfg, post.Summary{UID: "x", Title: "<script>alert(1)</script>"}))
	if strings.Contains(got, "<script>") {
		t.Fatalf("title not escaped: %q", got)
	}
}

func TestPostPage(t *testing.T) {
	d := post.Detail{
		UID:                  "hooks",
		Title:                "Como utilizar Hooks",
		Author:               "Joseph",
		FirstPublicationDate: date(2021, time.March, 15),
		Content: []post.Section{
			{Heading: "Intro", Body: richtext.Blocks{{Type: richtext.TypeParagraph, Text: "one two three"}}},
		},
	}
	got := renderString(t, Post(testCfg, d, Preview{}))
	for _, want := range []string{
		"<h1>Como utilizar Hooks</h1>",
		"15 mar 2021",
		"1 min",
		"<h2>Intro</h2>",
		"<p>one two three</p>",
		`src="` + DefaultBanner + `"`,
		`"@type":"BlogPosting"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Post output missing %q", want)
		}
	}
	if strings.Contains(got, "preview-bar") {
		t.Error("preview bar rendered outside preview")
	}
}

func TestPostPagePreviewBar(t *testing.T) {
	got := renderString(t, Post(testCfg, post.Detail{UID: "p"}, Preview{Active: true, CSRFToken: "tok"}))
	if !strings.Contains(got, `name="_csrf" value="tok"`) {
		t.Errorf("preview bar missing csrf token: %q", got)
	}
}

func TestBannerURL(t *testing.T) {
	d := post.Detail{UID: "a b", Banner: post.Banner{URL: "https://images.prismic.io/x.png"}}
	if got := BannerURL(testCfg, d); got != "https://images.prismic.io/x.png" {
		t.Errorf("BannerURL = %q", got)
	}
	proxied := testCfg
	proxied.MediaProxy = true
	if got, want := BannerURL(proxied, d), "/media/banner/a%20b/?v="+d.Banner.Version(); got != want {
		t.Errorf("BannerURL proxied = %q, want %q", got, want)
	}
	replaced := d
	replaced.Banner.URL = "https://images.prismic.io/y.png"
	if BannerURL(proxied, replaced) == BannerURL(proxied, d) {
		t.Errorf("BannerURL did not change with the banner image")
	}
	if got := BannerURL(proxied, post.Detail{UID: "a"}); got != DefaultBanner {
		t.Errorf("BannerURL fallback = %q", got)
	}
}

func TestStatusPages(t *testing.T) {
	en := testCfg
	en.Locale = "en"
	if got := renderString(t, NotFound(en)); !strings.Contains(got, "Page not found") {
		t.Errorf("NotFound = %q", got)
	}
	if got := renderString(t, ServerError(testCfg)); !strings.Contains(got, "Algo deu errado") {
		t.Errorf("ServerError = %q", got)
	}
}
