package spacetraveling

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/cms"
	"github.com/eringen/spacetraveling/pager"
	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/views"
)

// loadMoreHeader marks a request from the load-more script, which wants
// only the list fragment.
const loadMoreHeader = "X-Load-More"

// feedSize is how many posts the RSS feed carries.
const feedSize = 20

func (a *App) handleHome(c echo.Context) error {
	page, err := a.Cache.FirstPage(c.Request().Context(), PreviewRef(c))
	if err != nil {
		return upstreamError(err)
	}
	return Render(c, a.Views.Home(a.viewConfig(), page))
}

func (a *App) handleLoadMore(c echo.Context) error {
	cursor := c.QueryParam("cursor")
	if cursor == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing cursor")
	}
	c.Response().Header().Add(echo.HeaderVary, loadMoreHeader)
	p := pager.Resume(a.Cache, cursor)
	added, next, err := p.LoadMore(c.Request().Context())
	if err != nil {
		return upstreamError(err)
	}
	if c.Request().Header.Get(loadMoreHeader) != "" {
		return Render(c, a.Views.PostList(a.viewConfig(), added, next))
	}
	// Without the script the link is a plain navigation: show the page on its own.
	return Render(c, a.Views.Home(a.viewConfig(), post.Page{Results: added, NextPage: next}))
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	ref := PreviewRef(c)
	d, err := a.Cache.GetPost(c.Request().Context(), slug, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.viewConfig()))
		}
		return upstreamError(err)
	}
	return Render(c, a.Views.Post(a.viewConfig(), d, views.Preview{
		Active:    ref != "",
		CSRFToken: CsrfToken(c),
	}))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.allPosts(c.Request().Context(), 0)
	if err != nil {
		return upstreamError(err)
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.allPosts(c.Request().Context(), feedSize)
	if err != nil {
		return upstreamError(err)
	}
	return a.renderRSS(c, posts)
}

var errEnoughPosts = errors.New("enough posts")

// allPosts follows the list from the first page. limit <= 0 loads every page.
func (a *App) allPosts(ctx context.Context, limit int) ([]post.Summary, error) {
	first, err := a.Cache.FirstPage(ctx, "")
	if err != nil {
		return nil, err
	}
	p := pager.New(a.Cache, first)
	if limit <= 0 || len(first.Results) < limit {
		err = p.Walk(ctx, func([]post.Summary) error {
			if limit > 0 && len(p.Posts()) >= limit {
				return errEnoughPosts
			}
			return nil
		})
		if err != nil && !errors.Is(err, errEnoughPosts) {
			return nil, err
		}
	}
	posts := p.Posts()
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func handleHomeRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("\nSitemap: " + a.Config.URL + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

// upstreamError maps content source failures to HTTP errors. A cursor that
// does not belong to the repository is the client's fault.
func upstreamError(err error) error {
	switch {
	case errors.Is(err, cms.ErrForeignCursor):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor").SetInternal(err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return echo.NewHTTPError(http.StatusBadGateway).SetInternal(err)
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.viewConfig()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("[%s] server error: %v", c.Response().Header().Get(echo.HeaderXRequestID), err)
		if c.Request().Header.Get(loadMoreHeader) != "" {
			_ = c.NoContent(code)
			return
		}
		_ = RenderStatus(c, code, a.Views.ServerError(a.viewConfig()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
