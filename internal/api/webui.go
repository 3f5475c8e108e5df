package api

import (
	"io/fs"
	"net/http"

	"github.com/gentrack/gentrack/webui"
)

// WebUIHandler serves the embedded dashboard. Unknown paths fall back
// to index.html; API routes never reach this handler.
func WebUIHandler() http.Handler {
	dist, err := webui.DistFS()
	if err != nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "dashboard assets unavailable", http.StatusInternalServerError)
		})
	}
	fileServer := http.FileServer(http.FS(dist))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			WriteError(w, http.StatusMethodNotAllowed, "metodo nao permitido")
			return
		}
		path := r.URL.Path
		if path != "/" {
			if _, err := fs.Stat(dist, path[1:]); err != nil {
				r.URL.Path = "/"
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}
