package vangoedge

import (
	"context"
	"log/slog"

	"github.com/vango-go/vango-edge/pkg/scope"
	"github.com/vango-go/vango-edge/pkg/serverfn"
)

// =============================================================================
// Configuration Types
// =============================================================================

// InvokeFunc performs one server-function invocation. ctx carries the request
// scope; data is the raw argument bytes extracted from the request.
type InvokeFunc func(ctx context.Context, fn serverfn.Fn, data []byte) (serverfn.Payload, error)

// Middleware wraps the invocation of a server function. Middleware from
// pkg/middleware (metrics, tracing) produce values of this type; applications
// can add their own.
type Middleware func(next InvokeFunc) InvokeFunc

// Config configures the server-function adapter.
type Config struct {
	// Registry resolves request paths to server functions. A nil Registry
	// makes every request miss.
	Registry serverfn.Registry

	// PathPrefix is stripped from the request path before lookup, so a
	// handler mounted at "/api" resolves "/api/add_todo" to the function
	// registered at "add_todo". Default: "".
	PathPrefix string

	// MaxBodyBytes bounds request bodies for body-carried encodings.
	// Requests over the limit get a 413. Default: 1 MiB.
	MaxBodyBytes int64

	// Logger is the structured logger for the adapter.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// AdditionalContext runs after the adapter has provided the request and
	// ResponseOptions into the fresh request scope, and before the function
	// is invoked. Use it to provide application values (database handles,
	// authenticated user) that server functions pick up from the scope.
	AdditionalContext func(sc *scope.Scope)

	// Middleware wraps the server-function invocation, outermost first.
	Middleware []Middleware

	// DevMode includes error details in 500 bodies that production
	// responses omit.
	DevMode bool
}

// DefaultMaxBodyBytes bounds argument bodies when Config.MaxBodyBytes is 0.
const DefaultMaxBodyBytes int64 = 1 << 20

// withDefaults returns cfg with zero fields filled in.
func (cfg Config) withDefaults() Config {
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
