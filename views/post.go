package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/richtext"
)

// Post renders a full post page.
func Post(cfg SiteConfig, d post.Detail, preview Preview) templ.Component {
	meta := PageMeta{
		Title:       d.Title,
		Description: d.Subtitle,
		URL:         buildURL(cfg.URL, "post", d.UID),
		OGType:      "article",
		Image:       d.Banner.URL,
		JSONLD:      BlogPostingJsonLD(cfg, d),
	}
	m := msgs(cfg.Locale)
	return Layout(cfg, meta, component(func(h *htmlWriter) {
		if preview.Active {
			h.component(PreviewBar(cfg, preview))
		}
		h.component(Header(cfg))
		h.raw("<img class=\"banner\"")
		h.attr("src", BannerURL(cfg, d))
		alt := d.Banner.Alt
		if alt == "" {
			alt = "banner"
		}
		h.attr("alt", alt)
		h.raw("/><main class=\"main-container\"><div class=\"post-container\"><h1>")
		h.text(d.Title)
		h.raw("</h1></div><div class=\"post-information\">")
		if date := FormatDate(d.FirstPublicationDate, cfg.Locale); date != "" {
			h.raw("<span class=\"icon-calendar\"><time")
			h.attr("datetime", d.FirstPublicationDate.Format("2006-01-02"))
			h.raw(">")
			h.text(date)
			h.raw("</time></span>")
		}
		h.raw("<span class=\"icon-user\">")
		h.text(d.Author)
		h.raw("</span><span class=\"icon-clock\">")
		h.text(strconv.Itoa(d.ReadingTime().Minutes) + " " + m.ReadingTime)
		h.raw("</span></div>")
		for _, s := range d.Content {
			h.raw("<div class=\"post-content\">")
			if s.Heading != "" {
				h.raw("<h2>")
				h.text(s.Heading)
				h.raw("</h2>")
			}
			h.component(richtext.Component(s.Body))
			h.raw("</div>")
		}
		h.raw("</main>")
	}))
}

// PreviewBar shows that CMS preview content is being rendered and offers a
// way out.
func PreviewBar(cfg SiteConfig, preview Preview) templ.Component {
	m := msgs(cfg.Locale)
	return component(func(h *htmlWriter) {
		h.raw("<aside class=\"preview-bar\"><span>")
		h.text(m.PreviewOn)
		h.raw("</span><form method=\"post\" action=\"/api/exit-preview/\"><input type=\"hidden\" name=\"_csrf\"")
		h.attr("value", preview.CSRFToken)
		h.raw("/><button type=\"submit\">")
		h.text(m.ExitPreview)
		h.raw("</button></form></aside>")
	})
}
