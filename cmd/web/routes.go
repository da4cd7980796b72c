package main

import (
	"io/fs"
	"net/http"

	htmxmiddleware "github.com/donseba/go-htmx/middleware"
	"github.com/justinas/alice"
	"github.com/myrjola/saferroad/ui"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(ui.Files, "static")
	if err != nil {
		panic(err) // the embedded directory is always present
	}
	fileServer := http.FileServer(http.FS(static))
	mux.Handle("GET /static/", cacheForeverHeaders(http.StripPrefix("/static", fileServer)))

	mux.HandleFunc("GET /api/healthy", app.healthy)
	mux.Handle("GET /api/metrics", app.metrics.Handler())

	dynamic := alice.New(app.sessionManager.LoadAndSave, app.noSurf, commonContext, app.sessionLogContext,
		htmxmiddleware.MiddleWare)

	mux.Handle("GET /{$}", dynamic.ThenFunc(app.home))
	mux.Handle("POST /round/choose", dynamic.ThenFunc(app.choose))
	mux.Handle("POST /round/next", dynamic.ThenFunc(app.next))
	mux.Handle("POST /game/replay", dynamic.ThenFunc(app.replay))

	common := alice.New(app.recoverPanic, app.logRequest, app.secureHeaders)

	return common.Then(mux)
}
