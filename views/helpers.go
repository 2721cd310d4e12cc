package views

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/post"
)

// DefaultBanner is shown when a post has no banner image.
const DefaultBanner = "/public/images/banner.jpg"

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostURL is the site-relative link to a post.
func PostURL(uid string) string {
	return "/post/" + url.PathEscape(uid) + "/"
}

// LoadMoreURL is the link behind the "load more" control. The cursor is
// passed through untouched.
func LoadMoreURL(cursor string) string {
	return "/posts/?cursor=" + url.QueryEscape(cursor)
}

// BannerURL returns the image to show in a post header.
func BannerURL(cfg SiteConfig, d post.Detail) string {
	if d.Banner.URL == "" {
		return DefaultBanner
	}
	if cfg.MediaProxy {
		return "/media/banner/" + url.PathEscape(d.UID) + "/?v=" + d.Banner.Version()
	}
	return d.Banner.URL
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	return marshalJsonLD(data)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, d post.Detail) string {
	postURL := buildURL(cfg.URL, "post", d.UID)
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "BlogPosting",
		"headline": d.Title,
		"url":      postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
		"timeRequired": "PT" + strconv.Itoa(d.ReadingTime().Minutes) + "M",
	}
	if d.Subtitle != "" {
		data["description"] = d.Subtitle
	}
	if d.FirstPublicationDate != nil {
		data["datePublished"] = d.FirstPublicationDate.Format("2006-01-02T15:04:05Z07:00")
	}
	if d.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  d.Author,
		}
	}
	if d.Banner.URL != "" {
		data["image"] = d.Banner.URL
	}
	return marshalJsonLD(data)
}

func marshalJsonLD(data map[string]interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// htmlWriter writes markup and remembers the first error.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" ", name, "=\"", templ.EscapeString(value), "\"")
}

func (h *htmlWriter) component(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

func component(fn func(h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{ctx: ctx, w: w}
		fn(h)
		return h.err
	})
}
