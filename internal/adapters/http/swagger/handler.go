// Package swagger serves the API reference: the embedded OpenAPI document and
// a ReDoc page that renders it.
package swagger

import (
	"errors"
	httptemplate "html/template"
	"net/http"

	"github.com/gorilla/mux"
)

// Error constants.
var (
	ErrServe = errors.New("swagger serve failed")
)

const (
	specPath  = "/openapi.yaml"
	docsPath  = "/api-docs"
	indexFile = "template/index.tpl"
)

// Register attaches the API reference routes to rtr.
//
//	GET /api-docs      -> ReDoc HTML
//	GET /openapi.yaml  -> embedded OpenAPI document
func Register(title string, rtr *mux.Router) {
	if rtr == nil {
		panic("router is nil")
	}
	rtr.HandleFunc(docsPath, handler(title)).Methods(http.MethodGet)
	rtr.HandleFunc(specPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	}).Methods(http.MethodGet)
}

func handler(title string) http.HandlerFunc {
	t := httptemplate.Must(httptemplate.ParseFS(templates, indexFile))
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := t.Execute(w, struct{ Title, Spec string }{title, specPath}); err != nil {
			http.Error(w, errors.Join(ErrServe, err).Error(), http.StatusInternalServerError)
		}
	}
}
