// Package admin serves the embedded single-page admin UI.
package admin

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"invoice-generator/internal/pkg/response"
)

//go:embed static
var static embed.FS

// Handler serves files under /assets/ from the embedded bundle and
// index.html for every other GET so client-side routes resolve.
func Handler() http.Handler {
	root, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	assets := http.FileServer(http.FS(root))

	index, err := fs.ReadFile(root, "index.html")
	if err != nil {
		panic(err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			response.Message(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}

		if strings.HasPrefix(r.URL.Path, "/assets/") {
			name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
			if _, err := fs.Stat(root, name); err != nil {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			assets.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(index)
	})
}
