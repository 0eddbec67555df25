package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/mw"
)

func init() { Register("static", registerStatic) }

func registerStatic(r chi.Router, d deps.Deps) {
	host := mw.EnforceHost(d.AllowedHosts, d.Logger)
	r.With(host).Get("/", handlers.Index())
	r.With(host).Handle("/assets/*", handlers.Assets("/assets/"))
}
