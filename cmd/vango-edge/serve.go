package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	vangoedge "github.com/vango-go/vango-edge"
	"github.com/vango-go/vango-edge/internal/tail"
	"github.com/vango-go/vango-edge/pkg/middleware"
	"github.com/vango-go/vango-edge/pkg/serverfn"
)

func serveCmd() *cobra.Command {
	var (
		addr         string
		fnPrefix     string
		dev          bool
		maxBody      int64
		assetsBucket string
		assetsPrefix string
		assetsRegion string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve registered server functions over HTTP",
		Long: `Start the adapter HTTP server.

Endpoints:
  <prefix>/*   server-function dispatch
  /metrics     Prometheus metrics
  /_edge/tail  WebSocket log tail
  /healthz     liveness probe

Examples:
  vango-edge serve
  vango-edge serve --addr=:9090 --prefix=/api
  vango-edge serve --assets-bucket=my-app-assets`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(serveOptions{
				addr:         addr,
				fnPrefix:     fnPrefix,
				dev:          dev,
				maxBody:      maxBody,
				assetsBucket: assetsBucket,
				assetsPrefix: assetsPrefix,
				assetsRegion: assetsRegion,
			})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Address to listen on")
	cmd.Flags().StringVar(&fnPrefix, "prefix", "/api", "Route prefix for server functions")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development mode (verbose errors, demo functions)")
	cmd.Flags().Int64Var(&maxBody, "max-body", vangoedge.DefaultMaxBodyBytes, "Maximum request body size in bytes")
	cmd.Flags().StringVar(&assetsBucket, "assets-bucket", "", "S3 bucket to serve /public/* assets from")
	cmd.Flags().StringVar(&assetsPrefix, "assets-prefix", "public/", "Key prefix inside the assets bucket")
	cmd.Flags().StringVar(&assetsRegion, "assets-region", "us-east-1", "Region of the assets bucket")

	return cmd
}

type serveOptions struct {
	addr         string
	fnPrefix     string
	dev          bool
	maxBody      int64
	assetsBucket string
	assetsPrefix string
	assetsRegion string
}

func runServe(opts serveOptions) error {
	tailSrv := tail.NewServer()
	defer tailSrv.Close()

	level := slog.LevelInfo
	if opts.dev {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(
		io.MultiWriter(os.Stderr, tailSrv),
		&slog.HandlerOptions{Level: level},
	))
	slog.SetDefault(logger)

	registry := serverfn.NewMapRegistry()
	if opts.dev {
		registerDemoFunctions(registry)
	}

	handler := vangoedge.New(vangoedge.Config{
		Registry:     registry,
		MaxBodyBytes: opts.maxBody,
		Logger:       logger,
		DevMode:      opts.dev,
		Middleware: []vangoedge.Middleware{
			middleware.Prometheus(),
			middleware.OpenTelemetry(),
		},
	})

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	vangoedge.Mount(r, opts.fnPrefix, handler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/_edge/tail", tailSrv.HandleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	if opts.assetsBucket != "" {
		mountAssets(r, opts, logger)
	}

	srv := &http.Server{
		Addr:    opts.addr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", opts.addr, "prefix", opts.fnPrefix, "dev", opts.dev)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func mountAssets(r chi.Router, opts serveOptions, logger *slog.Logger) {
	// Deploy pipelines usually leave assets world-readable; anonymous
	// credentials keep the serve path free of a local AWS config.
	client := s3.New(s3.Options{
		Region:      opts.assetsRegion,
		Credentials: aws.AnonymousCredentials{},
	})

	h := newAssetsHandler(client, opts.assetsBucket, opts.assetsPrefix, logger)
	r.Handle("/public/*", http.StripPrefix("/public/", h))
	logger.Info("serving assets", "bucket", opts.assetsBucket, "prefix", opts.assetsPrefix)
}
