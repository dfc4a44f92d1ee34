// internal/httpcontroller/routes.go
package httpcontroller

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Embed the views directory.
//
//go:embed views
var ViewsFs embed.FS

// indexFallback is served when no index template can be rendered. Field
// deployments probe this page to confirm the service is up, the text stays
// as it has always been.
const indexFallback = "<h1>Umi no Me</h1><p>Server is running.</p>"

// TemplateRenderer is a custom HTML template renderer for the Echo framework.
type TemplateRenderer struct {
	templates *template.Template
}

// Render renders a template with the given data.
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// setupTemplateRenderer configures the template renderer. A templates
// directory from the settings overrides the embedded views.
func (s *Server) setupTemplateRenderer() {
	if dir := s.Settings.Web.Templates; dir != "" {
		if tmpl, err := template.ParseGlob(dir + "/*.html"); err == nil {
			s.Echo.Renderer = &TemplateRenderer{templates: tmpl}
			return
		} else {
			log.Printf("Warning: Failed to parse templates from %s: %v", dir, err)
		}
	}

	tmpl, err := template.ParseFS(ViewsFs, "views/*.html")
	if err != nil {
		log.Printf("Warning: Failed to parse embedded templates: %v", err)
		return
	}
	s.Echo.Renderer = &TemplateRenderer{templates: tmpl}
}

// IndexData is the payload for the index template.
type IndexData struct {
	Name    string
	Version string
}

// initRoutes registers the legacy page and file routes. The JSON API
// registers its own routes separately.
func (s *Server) initRoutes() {
	s.Echo.GET("/", s.Index)
	s.Echo.GET("/health", s.Health)
	s.Echo.GET("/csv", s.CSVView)
	s.Echo.GET("/logs/detections.csv", s.CSVDownload)
	s.Echo.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
}

// Index handles GET /. The template renders into a buffer first so a broken
// template falls back to the plain status line instead of a half-written
// page.
func (s *Server) Index(ctx echo.Context) error {
	if renderer, ok := s.Echo.Renderer.(*TemplateRenderer); ok && renderer != nil {
		var buf bytes.Buffer
		data := IndexData{Name: s.Settings.Main.Name, Version: s.Settings.Version}
		if err := renderer.templates.ExecuteTemplate(&buf, "index.html", data); err == nil {
			return ctx.HTMLBlob(http.StatusOK, buf.Bytes())
		} else {
			s.Debug("Index template render failed: %v", err)
		}
	}
	return ctx.HTML(http.StatusOK, indexFallback)
}

// Health handles GET /health. Kept as bare text, load balancer checks and
// camera firmware expect exactly this.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}
