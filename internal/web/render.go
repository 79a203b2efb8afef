package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/cedricdekimpe/MigraineTracker/internal/logger"
	"github.com/cedricdekimpe/MigraineTracker/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// StatsPageData is the template data for the stats page.
type StatsPageData struct {
	PageData
	Email      string
	Months     int
	Overview   *ops.OverviewOutput
	ReportHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	markdown  goldmark.Markdown
	version   string
	log       *logger.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, log *logger.Logger) *Renderer {
	funcMap := template.FuncMap{
		"decimal": func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"stats": "stats.html",
		"error": "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		version:   version,
		log:       log,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.log.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.log.Error("template execution error", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderErrorPage renders a tracker error as an HTML page.
func (r *Renderer) renderErrorPage(w http.ResponseWriter, req *http.Request, err error) {
	tErr := errors.As(err)
	message := tErr.Message
	if tErr.Code == errors.ErrInternal {
		r.log.Error("request failed", "path", req.URL.Path, "error", err)
		message = "an internal error occurred"
	}

	r.renderPageStatus(w, req, tErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", tErr.Status),
			Version: r.version,
		},
		StatusCode: tErr.Status,
		Message:    message,
	})
}

// renderMarkdown converts markdown text to HTML, GFM tables included.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// apiError is one entry of a JSON API error response.
type apiError struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// statusTitle names a status code, covering the non-standard 499.
func statusTitle(status int) string {
	if status == 499 {
		return "Client Closed Request"
	}
	return http.StatusText(status)
}

// renderAPIError writes err as {"errors":[{status, code, title, detail}]}.
func (r *Renderer) renderAPIError(w http.ResponseWriter, req *http.Request, err error) {
	tErr := errors.As(err)
	detail := tErr.Message
	if tErr.Code == errors.ErrInternal {
		r.log.Error("request failed", "path", req.URL.Path, "error", err)
		detail = "an internal error occurred"
	}
	renderJSON(w, tErr.Status, map[string]any{
		"errors": []apiError{{
			Status: strconv.Itoa(tErr.Status),
			Code:   string(tErr.Code),
			Title:  statusTitle(tErr.Status),
			Detail: detail,
		}},
	})
}

// renderUnauthorized answers a request that carries no account.
func renderUnauthorized(w http.ResponseWriter) {
	renderJSON(w, http.StatusUnauthorized, map[string]any{
		"errors": []apiError{{
			Status: "401",
			Code:   "UNAUTHORIZED",
			Title:  statusTitle(http.StatusUnauthorized),
			Detail: "You need to sign in or sign up before continuing.",
		}},
	})
}

// resource is the {"data": {type, id, attributes}, "meta": {...}} envelope.
type resource struct {
	Data resourceData   `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

type resourceData struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes any    `json:"attributes"`
}

// renderResource writes attributes inside the resource envelope.
func renderResource(w http.ResponseWriter, typ, id string, attributes any, meta map[string]any) {
	renderJSON(w, http.StatusOK, resource{
		Data: resourceData{Type: typ, ID: id, Attributes: attributes},
		Meta: meta,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
