// Package views renders the server side HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/logger"
	models "github.com/nikhil/rosters/internal/models/users"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Page is the data every template receives.
type Page struct {
	Title   string
	User    *models.User
	Warning string
	Errors  forms.Errors
	Data    interface{}
}

// Renderer executes the page templates.
type Renderer struct {
	pages map[string]*template.Template
	log   *logger.Logger
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer(log *logger.Logger) (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template), log: log.Named("views")}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(path.Base(layoutFile)).Funcs(funcs).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render writes page name with status. Nothing is written if the template
// fails, so a half rendered page never reaches the client.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	tmpl, ok := r.pages[name]
	if !ok {
		r.log.Error("Unknown template", "template", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.log.Error("Failed to render template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

var funcs = template.FuncMap{
	"media": func(ref string) string {
		if ref == "" {
			return ""
		}
		return "/media/" + ref
	},
	"pageURL": func(query string, number int) string {
		v := url.Values{}
		if query != "" {
			v.Set("q", query)
		}
		v.Set("page", strconv.Itoa(number))
		return "?" + v.Encode()
	},
	"fieldError": func(errs forms.Errors, field string) string {
		return errs.Get(field)
	},
}
