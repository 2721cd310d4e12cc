package spacetraveling

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/views"
)

const (
	maxBannerWidth = 1200
	jpegQuality    = 80
	maxMediaSize   = 10 << 20 // 10MB
)

var errMediaHost = errors.New("media host not allowed")

// resizeImage decodes src, scales it down to maxWidth if wider, and encodes
// the result as JPEG.
func resizeImage(src io.Reader, maxWidth int) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxWidth {
		newH := h * maxWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// mediaCacheName is the on-disk name of the resized copy of b.
func mediaCacheName(b post.Banner) string {
	return b.Hash() + ".jpg"
}

func (a *App) allowedMediaURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errMediaHost
	}
	host := strings.ToLower(u.Hostname())
	if !slices.Contains(a.Config.MediaHosts, host) {
		return errMediaHost
	}
	return nil
}

func (a *App) mediaClient() *http.Client {
	if a.CMS != nil {
		return a.CMS.HTTPClient()
	}
	return &http.Client{Timeout: a.Config.CMSTimeout}
}

// fetchBanner downloads and resizes rawURL.
func (a *App) fetchBanner(c echo.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.mediaClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch banner: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch banner: status %d", resp.StatusCode)
	}
	if resp.ContentLength > maxMediaSize {
		return nil, fmt.Errorf("fetch banner: too large (%d bytes)", resp.ContentLength)
	}
	return resizeImage(io.LimitReader(resp.Body, maxMediaSize), maxBannerWidth)
}

// writeFileAtomic writes data next to path and renames it into place so
// readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".banner-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// handleBanner serves a post's banner resized for the page header, caching
// the resized copy on disk. The URL carries the banner version; a request
// for a stale version is redirected to the current one, and only a current
// version is cacheable forever.
func (a *App) handleBanner(c echo.Context) error {
	d, err := a.Cache.GetPost(c.Request().Context(), c.Param("slug"), "")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return upstreamError(err)
	}
	if d.Banner.URL == "" {
		return c.Redirect(http.StatusFound, views.DefaultBanner)
	}
	if err := a.allowedMediaURL(d.Banner.URL); err != nil {
		c.Logger().Warnf("banner %s: %v", d.UID, err)
		return c.Redirect(http.StatusFound, views.DefaultBanner)
	}

	if v := c.QueryParam("v"); v != d.Banner.Version() {
		return c.Redirect(http.StatusFound, views.BannerURL(a.viewConfig(), d))
	}

	path := filepath.Join(a.Config.MediaDir, mediaCacheName(d.Banner))
	if _, err := os.Stat(path); err == nil {
		setImmutable(c)
		return c.File(path)
	}

	data, err := a.fetchBanner(c, d.Banner.URL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway).SetInternal(err)
	}
	if err := os.MkdirAll(a.Config.MediaDir, 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		c.Logger().Warnf("cache banner %s: %v", d.UID, err)
	}
	setImmutable(c)
	return c.Blob(http.StatusOK, "image/jpeg", data)
}

func setImmutable(c echo.Context) {
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
}
