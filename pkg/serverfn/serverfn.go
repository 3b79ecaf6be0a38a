// Package serverfn defines the server-function contract the edge adapter
// dispatches to: a function registered under a URL path with a declared
// argument/result encoding.
//
// The framework owns how functions come into being (registration code runs in
// the application binary); this package only carries the lookup surface and
// the codecs needed to call a function from raw request bytes.
package serverfn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Fn is a registered server function. Call receives the raw argument bytes
// the adapter extracted from the request (body or query string, depending on
// Encoding) and returns a serialized payload.
type Fn interface {
	// Path is the registration path, without a leading slash.
	Path() string

	// Encoding declares the argument source and result codec.
	Encoding() Encoding

	// Call decodes data, invokes the function, and serializes its result.
	Call(ctx context.Context, data []byte) (Payload, error)
}

// ArgumentError reports that the raw request data could not be decoded into
// the function's argument type. It maps to a 400 response.
type ArgumentError struct {
	Path string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("decoding arguments for %q: %v", e.Path, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// StatusCode implements the status-carrying error contract.
func (e *ArgumentError) StatusCode() int { return http.StatusBadRequest }

// Option configures a typed server function.
type Option func(*fnConfig)

type fnConfig struct {
	encoding Encoding
}

// WithEncoding sets the function's encoding. Default: EncodingURL.
func WithEncoding(e Encoding) Option {
	return func(c *fnConfig) {
		c.encoding = e
	}
}

// typedFn adapts a Go function to the Fn interface.
type typedFn struct {
	path     string
	encoding Encoding
	call     func(ctx context.Context, data []byte) (Payload, error)
}

func (f *typedFn) Path() string       { return f.path }
func (f *typedFn) Encoding() Encoding { return f.encoding }
func (f *typedFn) Call(ctx context.Context, data []byte) (Payload, error) {
	return f.call(ctx, data)
}

// New wraps a typed handler as a server function registered under path.
// Arguments decode from url-encoded pairs (see the `form` struct tag) or from
// CBOR, per the encoding; results serialize to JSON or CBOR. A handler that
// returns a Payload bypasses result serialization.
//
//	type AddTodo struct {
//	    Title string `form:"title"`
//	}
//	fn, err := serverfn.New("add_todo", func(ctx context.Context, args AddTodo) (Todo, error) {
//	    ...
//	})
func New[A any, R any](path string, handler func(ctx context.Context, args A) (R, error), opts ...Option) (Fn, error) {
	cfg := fnConfig{encoding: EncodingURL}
	for _, opt := range opts {
		opt(&cfg)
	}

	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, fmt.Errorf("serverfn: empty path")
	}

	argType := reflect.TypeOf((*A)(nil)).Elem()
	var formDecode func(url.Values, reflect.Value) error
	if cfg.encoding.HasURLEncodedArgs() {
		dec, err := buildFormDecoder(argType)
		if err != nil {
			return nil, fmt.Errorf("serverfn: %s: %w", path, err)
		}
		formDecode = dec
	}

	fn := &typedFn{path: path, encoding: cfg.encoding}
	fn.call = func(ctx context.Context, data []byte) (Payload, error) {
		var args A
		if err := decodeArgs(cfg.encoding, formDecode, data, &args); err != nil {
			return Payload{}, &ArgumentError{Path: path, Err: err}
		}

		result, err := handler(ctx, args)
		if err != nil {
			return Payload{}, err
		}

		return encodeResult(cfg.encoding, result)
	}
	return fn, nil
}

// MustNew is New but panics on registration errors. Intended for package-level
// function definitions where a bad signature is a programming error.
func MustNew[A any, R any](path string, handler func(ctx context.Context, args A) (R, error), opts ...Option) Fn {
	fn, err := New(path, handler, opts...)
	if err != nil {
		panic(err)
	}
	return fn
}

// decodeArgs fills *A from the raw request bytes.
func decodeArgs[A any](encoding Encoding, formDecode func(url.Values, reflect.Value) error, data []byte, args *A) error {
	if encoding.HasURLEncodedArgs() {
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return err
		}
		return formDecode(values, reflect.ValueOf(args).Elem())
	}

	// CBOR body. An empty body leaves the zero value, matching the
	// url-encoded behavior for an empty query string.
	if len(data) == 0 {
		return nil
	}
	return cbor.Unmarshal(data, args)
}

// encodeResult serializes a handler result per the function's encoding.
// Payload and []byte results pass through untouched.
func encodeResult(encoding Encoding, result any) (Payload, error) {
	switch v := result.(type) {
	case Payload:
		return v, nil
	case []byte:
		return Binary(v), nil
	}

	if encoding.ResultKind() == PayloadBinary {
		data, err := cbor.Marshal(result)
		if err != nil {
			return Payload{}, fmt.Errorf("encoding CBOR result: %w", err)
		}
		return Binary(data), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return Payload{}, fmt.Errorf("encoding JSON result: %w", err)
	}
	return JSON(string(data)), nil
}
