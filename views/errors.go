package views

import "github.com/a-h/templ"

// NotFound renders the 404 page.
func NotFound(cfg SiteConfig) templ.Component {
	m := msgs(cfg.Locale)
	return statusPage(cfg, m.NotFound, m.NotFoundMsg)
}

// ServerError renders the 5xx page.
func ServerError(cfg SiteConfig) templ.Component {
	m := msgs(cfg.Locale)
	return statusPage(cfg, m.ServerError, m.ServerMsg)
}

func statusPage(cfg SiteConfig, title, message string) templ.Component {
	m := msgs(cfg.Locale)
	return Layout(cfg, PageMeta{Title: title}, component(func(h *htmlWriter) {
		h.component(Header(cfg))
		h.raw("<main class=\"main-container status-page\"><h1>")
		h.text(title)
		h.raw("</h1><p>")
		h.text(message)
		h.raw("</p><a href=\"/\">")
		h.text(m.BackHome)
		h.raw("</a></main>")
	}))
}
