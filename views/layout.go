package views

import "github.com/a-h/templ"

// Layout wraps body in the shared page shell.
func Layout(cfg SiteConfig, meta PageMeta, body templ.Component) templ.Component {
	return component(func(h *htmlWriter) {
		title := cfg.Name
		if meta.Title != "" {
			title = meta.Title + " | " + cfg.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = cfg.Description
		}
		h.raw("<!DOCTYPE html><html")
		h.attr("lang", HTMLLang(cfg.Locale))
		h.raw("><head><meta charset=\"utf-8\"/>")
		h.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"/>")
		h.raw("<title>")
		h.text(title)
		h.raw("</title>")
		if desc != "" {
			h.raw("<meta name=\"description\"")
			h.attr("content", desc)
			h.raw("/>")
		}
		if meta.URL != "" {
			h.raw("<link rel=\"canonical\"")
			h.attr("href", meta.URL)
			h.raw("/><meta property=\"og:url\"")
			h.attr("content", meta.URL)
			h.raw("/>")
		}
		h.raw("<meta property=\"og:title\"")
		h.attr("content", title)
		h.raw("/>")
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}
		h.raw("<meta property=\"og:type\"")
		h.attr("content", ogType)
		h.raw("/>")
		if meta.Image != "" {
			h.raw("<meta property=\"og:image\"")
			h.attr("content", meta.Image)
			h.raw("/>")
		}
		h.raw("<link rel=\"icon\" href=\"/favicon.svg\" type=\"image/svg+xml\"/>")
		h.raw("<link rel=\"alternate\" type=\"application/rss+xml\" href=\"/feed.xml\"")
		h.attr("title", cfg.Name)
		h.raw("/>")
		h.raw("<link rel=\"stylesheet\" href=\"/public/styles.css\"/>")
		h.raw("<script src=\"/public/loadmore.js\" defer></script>")
		if meta.JSONLD != "" {
			// JSON from encoding/json escapes <, > and &, so it is safe inline.
			h.raw("<script type=\"application/ld+json\">", meta.JSONLD, "</script>")
		}
		h.raw("</head><body>")
		h.component(body)
		h.raw("</body></html>")
	})
}

// Header is the logo bar shown above post pages.
func Header(cfg SiteConfig) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw("<header class=\"header-container\"><a href=\"/\"><img src=\"/public/images/logo.svg\"")
		h.attr("alt", "logo")
		h.raw("/></a></header>")
	})
}
