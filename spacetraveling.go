// Package spacetraveling is a server-rendered blog front-end for a headless
// CMS, built with Go, Echo, and templ. It lists posts with cursor-based
// "load more" pagination and renders post pages with a reading-time estimate.
//
// Templates are supplied through ViewFuncs; DefaultViews returns the built-in
// set from the views package.
package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/spacetraveling/cms"
	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/views"
)

// ViewFuncs holds the templ components the handlers render. Replace any of
// them to own the markup.
type ViewFuncs struct {
	Home        func(cfg views.SiteConfig, page post.Page) templ.Component
	PostList    func(cfg views.SiteConfig, posts []post.Summary, cursor string) templ.Component
	Post        func(cfg views.SiteConfig, d post.Detail, preview views.Preview) templ.Component
	NotFound    func(cfg views.SiteConfig) templ.Component
	ServerError func(cfg views.SiteConfig) templ.Component
}

// DefaultViews returns the built-in templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		PostList:    views.PostList,
		Post:        views.Post,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// App is the central application. It wires together the CMS client, cache,
// snapshot store, handlers, middleware, and templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	CMS    *cms.Client
	Cache  *PostCache
	Store  *Store
	Views  ViewFuncs

	upstream       ContentSource
	webhookLimiter *RateLimiter
	rebuildMu      sync.Mutex
	customRoutes   []func(*App)
	staticDir      string
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, v ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     v,
		staticDir: "public",
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init builds the content source chain, middleware, and routes without
// starting the server.
func (a *App) Init() error {
	if a.upstream == nil {
		if err := a.Config.validate(); err != nil {
			return err
		}
		client, err := cms.New(cms.Config{
			Endpoint:    a.Config.CMSEndpoint,
			AccessToken: a.Config.CMSAccessToken,
			Timeout:     a.Config.CMSTimeout,
		})
		if err != nil {
			return fmt.Errorf("spacetraveling: init cms: %w", err)
		}
		a.CMS = client
		a.upstream = NewCMSSource(client, a.Config.PageSize)
	} else if a.Config.SessionSecret == "" {
		return errors.New("spacetraveling: SessionSecret is required")
	}

	a.Echo.Logger.SetLevel(parseLogLevel(a.Config.LogLevel))

	src := a.upstream
	if a.Config.SnapshotPath != "" {
		store, err := NewStore(a.Config.SnapshotPath)
		if err != nil {
			return fmt.Errorf("spacetraveling: init store: %w", err)
		}
		a.Store = store
		src = NewSnapshotSource(store, src, func(err error) {
			a.Echo.Logger.Warnf("snapshot: %v", err)
		})
	}
	a.Cache = NewPostCache(src, a.Config.PostCacheTTL)

	a.webhookLimiter = NewRateLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets are embedded and served ahead of the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/loadmore.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/public/styles.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/posts/", a.handleLoadMore)
	e.GET("/post/:slug/", a.handlePost)
	e.GET("/post/", handleHomeRedirect)

	if a.Config.MediaDir != "" {
		e.GET("/media/banner/:slug/", a.handleBanner)
	}

	if a.CMS != nil {
		e.GET("/api/preview", a.handlePreview)
	}
	e.POST("/api/exit-preview/", handleExitPreview)
	if a.Config.WebhookSecret != "" {
		e.POST("/api/revalidate", a.handleRevalidate)
	}
}

// viewConfig is the subset of the configuration the templates see.
func (a *App) viewConfig() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Locale:      a.Config.Locale,
		MediaProxy:  a.Config.MediaDir != "",
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.webhookLimiter != nil {
		a.webhookLimiter.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func parseLogLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// Build fetches every published post into the snapshot database named by
// cfg.SnapshotPath and removes posts that were unpublished.
func Build(ctx context.Context, cfg SiteConfig) (BuildResult, error) {
	cfg.setDefaults()
	if cfg.CMSEndpoint == "" {
		return BuildResult{}, errors.New("spacetraveling: CMSEndpoint is required")
	}
	if cfg.SnapshotPath == "" {
		return BuildResult{}, errors.New("spacetraveling: SnapshotPath is required to build")
	}
	client, err := cms.New(cms.Config{
		Endpoint:    cfg.CMSEndpoint,
		AccessToken: cfg.CMSAccessToken,
		Timeout:     cfg.CMSTimeout,
	})
	if err != nil {
		return BuildResult{}, fmt.Errorf("spacetraveling: init cms: %w", err)
	}
	store, err := NewStore(cfg.SnapshotPath)
	if err != nil {
		return BuildResult{}, fmt.Errorf("spacetraveling: init store: %w", err)
	}
	defer store.Close()

	res, err := store.Build(ctx, NewCMSSource(client, cfg.PageSize))
	if err != nil {
		return BuildResult{}, fmt.Errorf("spacetraveling: build: %w", err)
	}
	return res, nil
}

// ListSnapshot returns the posts stored in the snapshot at cfg.SnapshotPath,
// newest first.
func ListSnapshot(cfg SiteConfig) ([]post.Summary, error) {
	if cfg.SnapshotPath == "" {
		return nil, errors.New("spacetraveling: SnapshotPath is required to list")
	}
	store, err := NewStore(cfg.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("spacetraveling: init store: %w", err)
	}
	defer store.Close()
	return store.ListPosts()
}
