package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/vango-go/vango-edge/pkg/assets"
	"github.com/vango-go/vango-edge/pkg/serverfn"
)

// registerDemoFunctions adds a few server functions useful for smoke-testing
// a deployment. They are only registered in dev mode.
func registerDemoFunctions(registry *serverfn.MapRegistry) {
	registry.MustRegister(serverfn.MustNew("demo/echo",
		func(ctx context.Context, args struct {
			Message string `form:"message"`
		}) (map[string]string, error) {
			return map[string]string{"echo": args.Message}, nil
		},
	))

	registry.MustRegister(serverfn.MustNew("demo/time",
		func(ctx context.Context, args struct{}) (map[string]string, error) {
			return map[string]string{"now": time.Now().UTC().Format(time.RFC3339)}, nil
		},
		serverfn.WithEncoding(serverfn.EncodingGetJSON),
	))
}

func newAssetsHandler(store assets.ObjectStore, bucket, prefix string, logger *slog.Logger) http.Handler {
	return assets.NewHandler(store, bucket, prefix,
		assets.WithMaxAge(24*time.Hour),
		assets.WithLogger(logger),
	)
}
