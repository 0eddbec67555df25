package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bookmarkrss/internal/web"
)

// Index serves the landing page.
func Index() http.HandlerFunc {
	page := web.IndexHTML()
	modTime := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, "index.html", modTime, bytes.NewReader(page))
	}
}

// Assets serves the landing page script and stylesheet under prefix.
func Assets(prefix string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(http.FS(web.Assets())))
}
