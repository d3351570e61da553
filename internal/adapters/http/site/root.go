// Package site serves the embedded landing page.
package site

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
)

//go:embed static
var staticFS embed.FS

// FS returns an http.FileSystem for the embedded landing page.
func FS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}

// Register serves the landing page at / on rtr. It must be registered after
// every other route since it matches any GET.
func Register(rtr *mux.Router) {
	if rtr == nil {
		panic("router is nil")
	}
	files := http.FileServer(FS())
	rtr.Path("/").Methods(http.MethodGet).Handler(files)
}
