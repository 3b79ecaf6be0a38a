// Package assets serves static assets for edge-deployed applications out of
// an S3-compatible object store. Edge hosts typically have no local
// filesystem, so the adapter proxies asset requests to the bucket the
// deploy pipeline uploaded them to.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectStore is the subset of the S3 API the handler needs.
// *s3.Client satisfies it.
type ObjectStore interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Handler serves GET and HEAD requests for objects under a bucket prefix.
type Handler struct {
	store        ObjectStore
	bucket       string
	keyPrefix    string
	cacheControl string
	logger       *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithCacheControl sets the Cache-Control header applied to every served
// object. Fingerprinted assets are usually served with a long max-age.
func WithCacheControl(value string) Option {
	return func(h *Handler) {
		h.cacheControl = value
	}
}

// WithMaxAge is shorthand for an immutable max-age Cache-Control header.
func WithMaxAge(d time.Duration) Option {
	return func(h *Handler) {
		h.cacheControl = fmt.Sprintf("public, max-age=%d, immutable", int(d.Seconds()))
	}
}

// WithLogger sets the logger used for store errors.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates an asset handler backed by the given object store.
//
// keyPrefix is prepended to every object key (e.g. "public/"). The request
// path, minus the route prefix chi strips, becomes the rest of the key.
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	h := assets.NewHandler(s3.NewFromConfig(cfg), "my-app-assets", "public/")
//	r.Handle("/public/*", http.StripPrefix("/public/", h))
func NewHandler(store ObjectStore, bucket, keyPrefix string, opts ...Option) *Handler {
	h := &Handler{
		store:     store,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// objectKey returns a sanitized object key for a request path. It rejects
// traversal and absolute-path tricks so asset serving cannot escape the
// configured prefix.
func (h *Handler) objectKey(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// A leading "/" after trimming indicates an absolute-path attempt
	// (e.g. "//etc/passwd").
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-segments before cleaning to avoid "cleaning away" traversal
	// attempts and changing the meaning of the request path.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	return h.keyPrefix + clean, true
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	key, ok := h.objectKey(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodHead {
		h.serveHead(w, r, key)
		return
	}
	h.serveGet(w, r, key)
}

func (h *Handler) serveHead(w http.ResponseWriter, r *http.Request, key string) {
	out, err := h.store.HeadObject(r.Context(), &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		h.writeStoreError(w, r, key, err)
		return
	}

	h.writeObjectHeaders(w, out.ContentType, out.ContentLength, out.ETag, out.LastModified)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) serveGet(w http.ResponseWriter, r *http.Request, key string) {
	out, err := h.store.GetObject(r.Context(), &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		h.writeStoreError(w, r, key, err)
		return
	}
	defer out.Body.Close()

	h.writeObjectHeaders(w, out.ContentType, out.ContentLength, out.ETag, out.LastModified)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, out.Body); err != nil {
		h.logger.Debug("asset copy interrupted", "key", key, "error", err)
	}
}

func (h *Handler) writeObjectHeaders(w http.ResponseWriter, contentType *string, contentLength *int64, etag *string, lastModified *time.Time) {
	ct := "application/octet-stream"
	if contentType != nil && *contentType != "" {
		ct = *contentType
	}
	w.Header().Set("Content-Type", ct)

	if contentLength != nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", *contentLength))
	}
	if etag != nil && *etag != "" {
		w.Header().Set("ETag", *etag)
	}
	if lastModified != nil {
		w.Header().Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	}
	if h.cacheControl != "" {
		w.Header().Set("Cache-Control", h.cacheControl)
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, key string, err error) {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		http.NotFound(w, r)
		return
	}

	h.logger.Error("object store request failed", "bucket", h.bucket, "key", key, "error", err)
	http.Error(w, "Bad Gateway", http.StatusBadGateway)
}
