package spacetraveling

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// rebuildTimeout bounds a background snapshot rebuild.
const rebuildTimeout = 5 * time.Minute

// revalidatePayload is the part of the CMS webhook body we read.
type revalidatePayload struct {
	Type      string   `json:"type"`
	Secret    string   `json:"secret"`
	MasterRef string   `json:"masterRef"`
	Documents []string `json:"documents"`
}

// handleRevalidate drops cached content after a publish and, when a snapshot
// store is configured, rebuilds it in the background. Repeated bad secrets
// from one address are rate limited.
func (a *App) handleRevalidate(c echo.Context) error {
	ip := c.RealIP()
	if !a.webhookLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many attempts. Try again later.")
	}

	var payload revalidatePayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}
	secret := c.Request().Header.Get("X-Revalidate-Secret")
	if secret == "" {
		secret = payload.Secret
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(a.Config.WebhookSecret)) != 1 {
		a.webhookLimiter.Record(ip)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid secret")
	}

	a.Cache.Invalidate()
	rebuilding := a.Store != nil && a.startRebuild()
	c.Logger().Infof("revalidate: %s, %d documents, rebuilding=%t", payload.Type, len(payload.Documents), rebuilding)
	return c.JSON(http.StatusOK, map[string]any{
		"revalidated": true,
		"rebuilding":  rebuilding,
	})
}

// startRebuild refreshes the snapshot unless a rebuild is already running.
func (a *App) startRebuild() bool {
	if !a.rebuildMu.TryLock() {
		return false
	}
	go func() {
		defer a.rebuildMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
		defer cancel()
		res, err := a.Store.Build(ctx, a.upstream)
		if err != nil {
			a.Echo.Logger.Errorf("snapshot rebuild: %v", err)
			return
		}
		// Posts cached during the rebuild may predate it.
		a.Cache.Invalidate()
		a.Echo.Logger.Infof("snapshot rebuilt: %d posts, %d removed", res.Posts, res.Removed)
	}()
	return true
}
