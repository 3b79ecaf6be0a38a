package vangoedge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vango-go/vango-edge/pkg/scope"
	"github.com/vango-go/vango-edge/pkg/serverfn"
)

// =============================================================================
// Scope Values
// =============================================================================

type responseOptionsKey struct{}
type requestKey struct{}

// ResponseOptionsFromScope returns the ResponseOptions the adapter provided
// into the request scope, or nil outside a request.
func ResponseOptionsFromScope(sc *scope.Scope) *ResponseOptions {
	if sc == nil {
		return nil
	}
	opts, _ := sc.Value(responseOptionsKey{}).(*ResponseOptions)
	return opts
}

// RequestFromScope returns the request being served, or nil outside a request.
func RequestFromScope(sc *scope.Scope) *http.Request {
	if sc == nil {
		return nil
	}
	req, _ := sc.Value(requestKey{}).(*http.Request)
	return req
}

// UseResponseOptions is ResponseOptionsFromScope for handlers that only hold
// the invocation context.
func UseResponseOptions(ctx context.Context) *ResponseOptions {
	return ResponseOptionsFromScope(scope.FromContext(ctx))
}

// UseRequest is RequestFromScope for handlers that only hold the invocation
// context.
func UseRequest(ctx context.Context) *http.Request {
	return RequestFromScope(scope.FromContext(ctx))
}

// =============================================================================
// Handler
// =============================================================================

// Handler serves server-function requests. It is an http.Handler: route any
// path that can carry server-function calls to it (commonly a wildcard under
// a mount prefix) and it resolves, decodes, invokes, and responds.
//
// Each request runs in a fresh scope that is disposed once the response has
// been produced; the scope carries the request and a ResponseOptions handle
// the function can use to adjust status and headers.
type Handler struct {
	cfg    Config
	logger *slog.Logger
	invoke InvokeFunc
}

// New creates a Handler for the given configuration.
func New(cfg Config) *Handler {
	cfg = cfg.withDefaults()

	invoke := InvokeFunc(func(ctx context.Context, fn serverfn.Fn, data []byte) (serverfn.Payload, error) {
		return fn.Call(ctx, data)
	})
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		invoke = cfg.Middleware[i](invoke)
	}

	return &Handler{cfg: cfg, logger: cfg.Logger, invoke: invoke}
}

// HandleServerFns creates a Handler that dispatches to reg with default
// settings. It listens for requests with server-function arguments in the URL
// (GET) or body (POST), runs the function if one is registered at the path,
// and writes the resulting response.
func HandleServerFns(reg serverfn.Registry) *Handler {
	return New(Config{Registry: reg})
}

// HandleServerFnsWithContext is HandleServerFns plus a closure that provides
// additional values into each request scope before the function runs.
func HandleServerFnsWithContext(reg serverfn.Registry, additionalContext func(sc *scope.Scope)) *Handler {
	return New(Config{Registry: reg, AdditionalContext: additionalContext})
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := h.fnPath(r)

	var fn serverfn.Fn
	ok := false
	if h.cfg.Registry != nil {
		fn, ok = h.cfg.Registry.FnByPath(path)
	}
	if !ok {
		h.writeNotFound(w, r.URL.Path)
		return
	}

	// One scope per request; disposal (and therefore every registered
	// cleanup) is guaranteed on all exits below.
	sc := scope.New(nil)
	defer sc.Dispose()

	opts := NewResponseOptions()
	sc.Provide(responseOptionsKey{}, opts)
	sc.Provide(requestKey{}, r)
	if h.cfg.AdditionalContext != nil {
		h.cfg.AdditionalContext(sc)
	}

	data, err := h.argumentData(w, r, fn.Encoding())
	if err != nil {
		h.writeError(w, path, err)
		return
	}

	ctx := scope.NewContext(r.Context(), sc)
	payload, err := h.invoke(ctx, fn, data)
	if err != nil {
		h.writeError(w, path, err)
		return
	}

	h.writeResult(w, r, opts, payload)
	h.logger.Debug("server function served", "path", path, "encoding", fn.Encoding().String())
}

// fnPath derives the registry lookup path from the request URL.
func (h *Handler) fnPath(r *http.Request) string {
	p := r.URL.Path
	if h.cfg.PathPrefix != "" {
		p = strings.TrimPrefix(p, h.cfg.PathPrefix)
	}
	return strings.TrimPrefix(p, "/")
}

// argumentData extracts the raw argument bytes per the function's encoding:
// the request body for url-encoded POST and CBOR functions, the raw query
// string for the Get* variants.
func (h *Handler) argumentData(w http.ResponseWriter, r *http.Request, enc serverfn.Encoding) ([]byte, error) {
	if !enc.UsesRequestBody() {
		return []byte(r.URL.RawQuery), nil
	}

	if r.Body == nil {
		return nil, nil
	}
	limited := http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	data, err := io.ReadAll(limited)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &HTTPError{Code: http.StatusRequestEntityTooLarge, Message: "request body too large", Err: err}
		}
		return nil, &HTTPError{Code: http.StatusBadRequest, Message: "reading request body", Err: err}
	}
	return data, nil
}

// writeNotFound answers a path with no registered function.
func (h *Handler) writeNotFound(w http.ResponseWriter, path string) {
	h.logger.Debug("no server function registered", "path", path)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w,
		"Could not find a server function at the route %q.\n\n"+
			"It's likely that the function was never registered; register it on the "+
			"adapter's registry during startup.\n", path)
}

// apiAccepts are the Accept media types that mark a request as a programmatic
// client. Anything else is treated as a browser <form> submission and
// answered with a redirect back to the referrer.
var apiAccepts = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"application/cbor",
}

func acceptsAPIResponse(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		media := strings.TrimSpace(part)
		if idx := strings.Index(media, ";"); idx != -1 {
			media = strings.TrimSpace(media[:idx])
		}
		for _, want := range apiAccepts {
			if strings.EqualFold(media, want) {
				return true
			}
		}
	}
	return false
}

// writeResult maps a successful payload onto the response: base status from
// the Accept header (200 for API clients, 303 back to the referrer for form
// posts), overridden by anything the function set through ResponseOptions.
func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, opts *ResponseOptions, payload serverfn.Payload) {
	status := http.StatusOK
	redirecting := false
	if !acceptsAPIResponse(r.Header.Get("Accept")) {
		status = http.StatusSeeOther
		redirecting = true
	}

	parts := opts.Snapshot()
	if parts.Status != 0 {
		status = parts.Status
	}
	for key, values := range parts.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	// The function's own Location (set via ResponseOptions) wins over the
	// referrer fallback.
	if redirecting && w.Header().Get("Location") == "" {
		referer := r.Referer()
		if referer == "" {
			referer = "/"
		}
		w.Header().Set("Location", referer)
	}

	if ct := payload.ContentType(); ct != "" && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", ct)
	}

	w.WriteHeader(status)
	w.Write(payload.Body())
}

// writeError maps an invocation error onto the response. Errors that carry a
// status code (HTTPError, serverfn.ArgumentError) use it; everything else is
// a 500. The body is the JSON serialization of the error.
func (h *Handler) writeError(w http.ResponseWriter, path string, err error) {
	status := http.StatusInternalServerError
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		status = coded.StatusCode()
	}

	h.logger.Error("server function failed", "path", path, "status", status, "error", err)

	var body []byte
	if m, ok := err.(json.Marshaler); ok {
		if data, merr := json.Marshal(m); merr == nil {
			body = data
		}
	}
	if body == nil {
		msg := err.Error()
		if status >= http.StatusInternalServerError && !h.cfg.DevMode {
			msg = "internal server error"
		}
		body, _ = json.Marshal(map[string]string{"error": msg})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
