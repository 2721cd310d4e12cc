package spacetraveling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/cms"
	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/views"
)

// handlePreview starts a preview session. The CMS calls it with the preview
// token (a ref) and the document being edited; the visitor is redirected to
// that document's page, which then renders the draft.
func (a *App) handlePreview(c echo.Context) error {
	token := c.QueryParam("token")
	docID := c.QueryParam("documentId")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing token")
	}
	ref, err := a.CMS.PreviewRef(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid preview token").SetInternal(err)
	}

	location := "/"
	if docID != "" {
		doc, err := a.CMS.GetByID(c.Request().Context(), docID, ref)
		switch {
		case errors.Is(err, cms.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound)
		case err != nil:
			return upstreamError(err)
		}
		location = resolveDocument(doc)
	}

	if err := setPreviewSession(c, ref); err != nil {
		return err
	}
	c.Logger().Infof("preview started for %s", location)
	return c.Redirect(http.StatusTemporaryRedirect, location)
}

// handleExitPreview clears the preview session and returns to the home page.
func handleExitPreview(c echo.Context) error {
	if err := clearPreviewSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// resolveDocument maps a CMS document to the site path that renders it.
func resolveDocument(doc *cms.Document) string {
	if doc.Type == post.DocumentType && doc.UID != "" {
		return views.PostURL(doc.UID)
	}
	return "/"
}
