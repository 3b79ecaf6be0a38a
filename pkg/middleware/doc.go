// Package middleware provides observability middleware for the server-function
// adapter.
//
// Middleware here wraps the server-function invocation itself (not the outer
// http.Handler), so it sees the resolved function and the invocation error
// before the adapter translates it into a response.
//
//	handler := vangoedge.New(vangoedge.Config{
//	    Registry: reg,
//	    Middleware: []vangoedge.Middleware{
//	        middleware.OpenTelemetry(),
//	        middleware.Prometheus(),
//	    },
//	})
//
// # Prometheus
//
// The Prometheus middleware counts invocations by path and outcome, times
// them, and tracks in-flight calls. Expose the metrics endpoint yourself:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// The OpenTelemetry middleware creates one server span per invocation using
// the global tracer provider. Configure the provider in main() before
// serving.
package middleware
