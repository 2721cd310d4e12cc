package views

// SiteConfig holds site-wide settings the templates need.
type SiteConfig struct {
	Name        string // SITE_NAME
	URL         string // SITE_URL, no trailing slash
	Description string // SITE_DESCRIPTION
	Locale      string // "pt-BR" (default) or "en"
	MediaProxy  bool   // serve banners through /media/banner/
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image
	JSONLD      string
}

// Preview describes the CMS preview session shown on post pages.
type Preview struct {
	Active    bool
	CSRFToken string
}
