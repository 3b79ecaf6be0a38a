// Package vangoedge runs Vango-style server functions inside serverless
// edge-compute hosts.
//
// The adapter is deliberately thin: given an incoming request it looks a
// server function up by URL path, extracts the argument bytes from the query
// string or body per the function's declared encoding, invokes it inside a
// fresh request scope, and translates the resulting payload (or error) into
// an HTTP response. Functions can adjust the pending response - status code,
// cookies, headers - through the ResponseOptions handle the adapter provides
// into the scope.
//
// Usage:
//
//	reg := serverfn.NewMapRegistry()
//	reg.MustRegister(serverfn.MustNew("add_todo", AddTodo))
//
//	handler := vangoedge.New(vangoedge.Config{
//	    Registry:   reg,
//	    PathPrefix: "/api",
//	})
//	http.ListenAndServe(":8080", handler)
//
// Inside a server function:
//
//	func AddTodo(ctx context.Context, args AddTodoArgs) (Todo, error) {
//	    if args.Title == "" {
//	        vangoedge.RedirectCtx(ctx, "/todos/new")
//	        return Todo{}, nil
//	    }
//	    ...
//	}
package vangoedge

import "github.com/vango-go/vango-edge/pkg/serverfn"

// Re-exports so most applications only import this package and pkg/serverfn
// for registration.

// Fn is a registered server function.
type Fn = serverfn.Fn

// Registry resolves request paths to server functions.
type Registry = serverfn.Registry

// Payload is a serialized server-function result.
type Payload = serverfn.Payload

// Encoding declares a function's argument source and result codec.
type Encoding = serverfn.Encoding

// Encoding values.
const (
	EncodingURL     = serverfn.EncodingURL
	EncodingGetJSON = serverfn.EncodingGetJSON
	EncodingGetCBOR = serverfn.EncodingGetCBOR
	EncodingCBOR    = serverfn.EncodingCBOR
)
