package vangoedge

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Mount attaches the handler to a chi router under prefix, stripping the
// prefix from the request path before the handler sees it. A handler mounted
// at "/api" serves the function registered at "add_todo" for requests to
// "/api/add_todo".
//
// Mount leaves the handler's Config untouched; a Config.PathPrefix set at
// construction is still stripped after the mount prefix, so the same handler
// can be mounted at several prefixes concurrently.
//
//	r := chi.NewRouter()
//	vangoedge.Mount(r, "/api", vangoedge.HandleServerFns(reg))
func Mount(r chi.Router, prefix string, h *Handler) {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		r.Mount("/", h)
		return
	}
	r.Mount(prefix, http.StripPrefix(prefix, h))
}
