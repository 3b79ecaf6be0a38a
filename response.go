package vangoedge

import (
	"net/http"
	"sync"
)

// =============================================================================
// Response Options
// =============================================================================

// ResponseParts is the mutable shape of the pending response: an optional
// status override and headers to apply. A zero Status means "no override".
type ResponseParts struct {
	Status int
	Header http.Header
}

// clone returns a deep copy so snapshots cannot race with later mutation.
func (p ResponseParts) clone() ResponseParts {
	out := ResponseParts{Status: p.Status, Header: make(http.Header, len(p.Header))}
	for k, vs := range p.Header {
		out.Header[k] = append([]string(nil), vs...)
	}
	return out
}

// ResponseOptions lets a server function mutate the response the adapter will
// eventually write: override the status code, set cookies, add headers. The
// adapter provides one ResponseOptions per request scope; because the function
// runs below the response-generation code, the handle is shared and
// lock-protected rather than returned.
type ResponseOptions struct {
	mu    sync.RWMutex
	parts ResponseParts
}

// NewResponseOptions creates an empty ResponseOptions.
func NewResponseOptions() *ResponseOptions {
	return &ResponseOptions{parts: ResponseParts{Header: make(http.Header)}}
}

// Overwrite replaces the accumulated parts wholesale.
func (o *ResponseOptions) Overwrite(parts ResponseParts) {
	if parts.Header == nil {
		parts.Header = make(http.Header)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.parts = parts.clone()
}

// SetStatus overrides the status code of the response.
func (o *ResponseOptions) SetStatus(code int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.parts.Status = code
}

// InsertHeader sets a header, replacing any previous value with the same key.
func (o *ResponseOptions) InsertHeader(key, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.parts.Header.Set(key, value)
}

// AppendHeader adds a header value, leaving existing values for the key
// intact.
func (o *ResponseOptions) AppendHeader(key, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.parts.Header.Add(key, value)
}

// Snapshot returns a copy of the accumulated parts.
func (o *ResponseOptions) Snapshot() ResponseParts {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.parts.clone()
}
