package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"

	"github.com/myrjola/saferroad/internal/contexthelpers"
	"github.com/myrjola/saferroad/internal/errors"
	"github.com/myrjola/saferroad/internal/game"
	"github.com/myrjola/saferroad/ui"
)

// templateCache maps a page name to its parsed templates.
type templateCache map[string]*template.Template

type roadCardData struct {
	Title string
	Road  game.Road
}

// baseFuncs are the template functions. nonce and csrf are placeholders until render binds them to the request.
func baseFuncs() template.FuncMap {
	return template.FuncMap{
		"nonce": func() template.HTMLAttr {
			panic("not implemented")
		},
		"csrf": func() template.HTML {
			panic("not implemented")
		},
		"roadCard": func(title string, road game.Road) roadCardData {
			return roadCardData{Title: title, Road: road}
		},
	}
}

// newTemplateCache parses the base layout together with each directory under templates/pages. Every page has to
// define a template named "page".
func newTemplateCache() (templateCache, error) {
	pages, err := fs.ReadDir(ui.Files, "templates/pages")
	if err != nil {
		return nil, errors.Wrap(err, "read pages directory")
	}

	cache := templateCache{}
	for _, page := range pages {
		if !page.IsDir() {
			continue
		}
		name := page.Name()
		patterns := []string{"templates/base.gohtml", path.Join("templates/pages", name, "*.gohtml")}
		var t *template.Template
		if t, err = template.New(name).Funcs(baseFuncs()).ParseFS(ui.Files, patterns...); err != nil {
			return nil, errors.Wrap(err, "parse page templates", slog.String("page", name))
		}
		cache[name] = t
	}

	return cache, nil
}

// render writes the page with the base layout. Requests made by htmx outside of boosted navigation only get the
// page fragment.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	cached, ok := app.templates[page]
	if !ok {
		app.serverError(w, r, errors.New("template not found", slog.String("page", page)))
		return
	}

	t, err := cached.Clone()
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "clone template", slog.String("page", page)))
		return
	}

	ctx := r.Context()
	nonce := fmt.Sprintf("nonce=\"%s\"", contexthelpers.CSPNonce(ctx))
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\"/>", contexthelpers.CSRFToken(ctx))
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // nonce is generated by the server
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec // token is generated by the server
		},
	})

	name := "base"
	if hx := app.htmx.NewHandler(w, r).Request(); hx.HxRequest && !hx.HxBoosted {
		name = "page"
	}

	buf := new(bytes.Buffer)
	if err = t.ExecuteTemplate(buf, name, data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("page", page)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}
