package views

import (
	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/post"
)

// Home renders the post list page with the first page of posts.
func Home(cfg SiteConfig, page post.Page) templ.Component {
	meta := PageMeta{
		URL:    buildURL(cfg.URL),
		OGType: "website",
		JSONLD: WebsiteJsonLD(cfg),
	}
	return Layout(cfg, meta, component(func(h *htmlWriter) {
		h.raw("<main class=\"main-container\">")
		h.raw("<img src=\"/public/images/logo.svg\" alt=\"logo\" class=\"logo\"/>")
		h.raw("<div class=\"posts\">")
		h.component(PostList(cfg, page.Results, page.NextPage))
		h.raw("</div></main>")
	}))
}

// PostList renders summaries followed by the load-more control. The control
// is omitted when cursor is empty. It is also the load-more partial: its
// output replaces the previous control in place.
func PostList(cfg SiteConfig, posts []post.Summary, cursor string) templ.Component {
	return component(func(h *htmlWriter) {
		for _, p := range posts {
			h.component(PostCard(cfg, p))
		}
		if cursor != "" {
			h.component(LoadMore(cfg, cursor))
		}
	})
}

// PostCard renders one summary as a link to the post.
func PostCard(cfg SiteConfig, p post.Summary) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw("<a class=\"post-card\"")
		h.attr("href", PostURL(p.UID))
		h.raw("><strong>")
		h.text(p.Title)
		h.raw("</strong><p>")
		h.text(p.Subtitle)
		h.raw("</p><div class=\"post-info\">")
		if date := FormatDate(p.FirstPublicationDate, cfg.Locale); date != "" {
			h.raw("<span class=\"icon-calendar\"><time")
			h.attr("datetime", p.FirstPublicationDate.Format("2006-01-02"))
			h.raw(">")
			h.text(date)
			h.raw("</time></span>")
		}
		h.raw("<span class=\"icon-user\">")
		h.text(p.Author)
		h.raw("</span></div></a>")
	})
}

// LoadMore renders the control that fetches the page at cursor.
func LoadMore(cfg SiteConfig, cursor string) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw("<a class=\"load-more\" data-load-more")
		h.attr("href", LoadMoreURL(cursor))
		h.raw(">")
		h.text(msgs(cfg.Locale).LoadMore)
		h.raw("</a>")
	})
}
