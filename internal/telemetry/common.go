package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry wires the OpenTelemetry metrics pipeline
type Telemetry struct {
	server   *http.Server          // If type of metrics collection == "scraper".
	Provider *metric.MeterProvider // If not scraper use gRPC.
	meter    api.Meter             // meter to create metrics.
	ctx      *context.Context
}

var (
	once sync.Once
)

// InitMetrics initializes metrics depending on the configuration parameter value
func (t *Telemetry) InitMetrics(meterName string, ctx *context.Context) *Telemetry {
	metricsExporter := getEnvWithDefault("METRICS_EXPORTER", "")
	t.ctx = ctx

	once.Do(func() {
		if metricsExporter == "scraper" {
			slog.Info("Starting metrics with scraper exporter")
			t.initScrapeMetrics(meterName) // Serves a page on http://localhost:9080/metrics .
		} else {
			slog.Info("Starting metrics with grpc exporter")
			t.initGRPCMetrics(meterName) // Sends data to localhost:4317 or whatever OTEL_EXPORTER_OTLP_METRICS_ENDPOINT is set to.
		}
	})
	return &Telemetry{
		server:   t.server,
		Provider: t.Provider,
		meter:    t.meter,
		ctx:      t.ctx,
	}
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (t *Telemetry) Close() {
	if t.Provider != nil {
		t.Provider.ForceFlush(*t.ctx)
	}
}

// initGRPCMetrics initializes the OTLP gRPC metrics exporter. The endpoint
// comes from OTEL_EXPORTER_OTLP_METRICS_ENDPOINT, default localhost:4317.
func (t *Telemetry) initGRPCMetrics(meterName string) {
	exporter, err := otlpmetricgrpc.New(*t.ctx)
	if err != nil {
		slog.Error("Creating GRPC exporter", "error", err)

		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)
}

// initScrapeMetrics initializes the Prometheus scrape exporter. The exporter
// embeds a default OpenTelemetry Reader and implements prometheus.Collector.
func (t *Telemetry) initScrapeMetrics(meterName string) {
	exporter, err := prometheus.New()
	if err != nil {
		slog.Error("Creating HTML scrape exporter", "error", err)

		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)

	go t.serveMetrics()
}

// serveMetrics runs the metrics server for the "scraper" collection mode
func (t *Telemetry) serveMetrics() {
	slog.Info("Serving metrics at localhost:9080/metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	t.server = &http.Server{
		Addr:    ":9080",
		Handler: mux,
	}

	err := t.server.ListenAndServe()
	if err != nil {
		if fmt.Sprint(err) == "http: Server closed" {
			slog.Info("Shutting down server", "message", err)
		} else {
			slog.Error("ListenAndServe exited with", "error", err)
		}

		return
	}
}
