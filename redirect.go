package vangoedge

import (
	"context"
	"net/http"

	"github.com/vango-go/vango-edge/pkg/scope"
)

// Redirect sends the user somewhere else from within a server function: it
// sets a 302 status and a Location header with the provided path on the
// request's ResponseOptions. Outside a request scope (or if the scope has no
// ResponseOptions) it is a no-op.
func Redirect(sc *scope.Scope, path string) {
	opts := ResponseOptionsFromScope(sc)
	if opts == nil {
		return
	}
	opts.SetStatus(http.StatusFound)
	opts.InsertHeader("Location", path)
}

// RedirectCtx is Redirect for handlers that only hold the invocation context.
func RedirectCtx(ctx context.Context, path string) {
	Redirect(scope.FromContext(ctx), path)
}
