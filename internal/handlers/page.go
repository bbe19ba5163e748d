package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type indexData struct {
	Settings SettingsResponse
}

// Index serves the single page UI. Image state lives server-side in the
// session, so a reload shows the previously loaded image.
func (h *Handler) Index(c echo.Context) error {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, indexData{Settings: h.settingsResponse()}); err != nil {
		h.logger.Error("failed to render page", "error", err)
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
