package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"rezscan/internal/config"
	"rezscan/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Business metric types accepted by RecordBusinessMetric
const (
	MetricSessionCreated  = "session_created"
	MetricMatchesReceived = "matches_received"
	MetricReportExported  = "report_exported"
	MetricRateLimitHit    = "rate_limit_hit"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// Metrics holds all custom metrics for rezscan
type Metrics struct {
	// Scoring service calls
	ScoringDuration metric.Float64Histogram
	ScoringRequests metric.Int64Counter
	ScoringErrors   metric.Int64Counter

	// Business metrics
	SessionsCreated metric.Int64Counter
	MatchesReceived metric.Int64Counter
	ReportsExported metric.Int64Counter

	RateLimitHits metric.Int64Counter
}

// ObservabilityManager manages OpenTelemetry setup
type ObservabilityManager struct {
	config           ObservabilityConfig
	fullConfig       *config.Config
	logger           *errors.Logger
	resource         *resource.Resource
	tracerProvider   *trace.TracerProvider
	meterProvider    *sdkmetric.MeterProvider
	metrics          *Metrics
	shutdownFuncs    []func(context.Context) error
	prometheusServer *http.Server
}

// NewObservabilityManager creates a new observability manager. A disabled
// configuration yields a manager whose helpers run their functions untracked.
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config, logger *errors.Logger) (*ObservabilityManager, error) {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	if !obsConfig.Enabled {
		return &ObservabilityManager{config: obsConfig, fullConfig: fullConfig, logger: logger}, nil
	}

	om := &ObservabilityManager{
		config:        obsConfig,
		fullConfig:    fullConfig,
		logger:        logger,
		shutdownFuncs: make([]func(context.Context) error, 0),
	}

	if err := om.initResource(); err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if err := om.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := om.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return om, nil
}

// initResource creates the OpenTelemetry resource shared by traces and metrics
func (om *ObservabilityManager) initResource() error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			semconv.ServiceInstanceID(om.getServiceInstanceID()),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	om.resource = res
	return nil
}

// initTracing sets up OpenTelemetry tracing
func (om *ObservabilityManager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case om.config.ConsoleOutput:
		// stdout carries command output, so console telemetry goes to stderr
		opts := []stdouttrace.Option{stdouttrace.WithWriter(os.Stderr)}
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case om.otlpEnabled():
		exporter, err = om.createOTLPExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(om.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)

	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *ObservabilityManager) initMetrics() error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}

	meterProviderOptions := []sdkmetric.Option{
		sdkmetric.WithResource(om.resource),
	}
	for _, reader := range readers {
		meterProviderOptions = append(meterProviderOptions, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(meterProviderOptions...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	return om.initCustomMetrics()
}

// setupMetricReaders sets up all metric readers based on configuration
func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if om.fullConfig != nil && !om.fullConfig.Observability.Metrics.Enabled {
		return []sdkmetric.Reader{sdkmetric.NewManualReader()}, nil
	}

	if err := om.setupConsoleReader(&readers); err != nil {
		return nil, err
	}

	if err := om.setupOTLPReader(&readers); err != nil {
		return nil, err
	}

	if err := om.setupPrometheusReader(&readers); err != nil {
		return nil, err
	}

	// Instruments still need a reader to aggregate into
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	return readers, nil
}

// setupConsoleReader sets up console metric reader if enabled
func (om *ObservabilityManager) setupConsoleReader(readers *[]sdkmetric.Reader) error {
	if !om.config.ConsoleOutput {
		return nil
	}

	opts := []stdoutmetric.Option{stdoutmetric.WithWriter(os.Stderr)}
	if om.config.PrettyPrint {
		opts = append(opts, stdoutmetric.WithPrettyPrint())
	}
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create console metric exporter: %w", err)
	}

	interval := om.getMetricsCollectionInterval()
	*readers = append(*readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	return nil
}

// setupOTLPReader sets up OTLP metric reader if enabled
func (om *ObservabilityManager) setupOTLPReader(readers *[]sdkmetric.Reader) error {
	if !om.otlpEnabled() {
		return nil
	}

	otlpReader, err := om.createOTLPMetricsReader()
	if err != nil {
		return fmt.Errorf("failed to create OTLP metrics reader: %w", err)
	}
	*readers = append(*readers, otlpReader)
	return nil
}

// setupPrometheusReader sets up Prometheus metric reader and its scrape server if enabled
func (om *ObservabilityManager) setupPrometheusReader(readers *[]sdkmetric.Reader) error {
	if !om.config.Prometheus.Enabled {
		return nil
	}

	prometheusReader, prometheusMux, err := SetupPrometheusExporter(om.config.Prometheus)
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}
	if prometheusReader == nil {
		return nil
	}
	*readers = append(*readers, prometheusReader)

	server, err := StartPrometheusServer(prometheusMux, om.config.Prometheus, om.logger)
	if err != nil {
		return fmt.Errorf("failed to start Prometheus server: %w", err)
	}
	om.prometheusServer = server
	om.shutdownFuncs = append(om.shutdownFuncs, server.Shutdown)
	return nil
}

// initCustomMetrics creates all custom metrics for rezscan
func (om *ObservabilityManager) initCustomMetrics() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	om.metrics = &Metrics{}

	if err := om.createScoringMetrics(meter); err != nil {
		return err
	}

	if err := om.createBusinessMetrics(meter); err != nil {
		return err
	}

	return om.createRateLimitMetrics(meter)
}

// createScoringMetrics creates metrics for calls to the scoring service
func (om *ObservabilityManager) createScoringMetrics(meter metric.Meter) error {
	var err error

	om.metrics.ScoringDuration, err = meter.Float64Histogram(
		"rezscan_scoring_duration_seconds",
		metric.WithDescription("Time spent waiting on the scoring service"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create scoring duration metric: %w", err)
	}

	om.metrics.ScoringRequests, err = meter.Int64Counter(
		"rezscan_scoring_requests_total",
		metric.WithDescription("Total number of scoring service requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create scoring request count metric: %w", err)
	}

	om.metrics.ScoringErrors, err = meter.Int64Counter(
		"rezscan_scoring_errors_total",
		metric.WithDescription("Total number of failed scoring service requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create scoring error count metric: %w", err)
	}

	return nil
}

// createBusinessMetrics creates business-related metrics
func (om *ObservabilityManager) createBusinessMetrics(meter metric.Meter) error {
	var err error

	om.metrics.SessionsCreated, err = meter.Int64Counter(
		"rezscan_sessions_created_total",
		metric.WithDescription("Total number of presentation sessions created"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sessions created metric: %w", err)
	}

	om.metrics.MatchesReceived, err = meter.Int64Counter(
		"rezscan_matches_received_total",
		metric.WithDescription("Total number of ranked matches received from the scoring service"),
	)
	if err != nil {
		return fmt.Errorf("failed to create matches received metric: %w", err)
	}

	om.metrics.ReportsExported, err = meter.Int64Counter(
		"rezscan_reports_exported_total",
		metric.WithDescription("Total number of match reports exported"),
	)
	if err != nil {
		return fmt.Errorf("failed to create reports exported metric: %w", err)
	}

	return nil
}

// createRateLimitMetrics creates rate limiting metrics
func (om *ObservabilityManager) createRateLimitMetrics(meter metric.Meter) error {
	var err error

	om.metrics.RateLimitHits, err = meter.Int64Counter(
		"rezscan_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if om == nil || !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if om == nil || !om.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// Shutdown flushes exporters and stops the Prometheus server
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	if om == nil {
		return nil
	}
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TrackScoringOperation runs fn inside a span and records scoring metrics for it
func (om *ObservabilityManager) TrackScoringOperation(ctx context.Context, operation string, fn func(context.Context) error) error {
	m := om.GetMetrics()
	if m.ScoringDuration == nil {
		return fn(ctx)
	}

	ctx, span := om.Tracer("rezscan.scoring").Start(ctx, "scoring."+operation)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	span.SetAttributes(attrs...)

	if om.scoringMetricsEnabled() {
		m.ScoringDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		m.ScoringRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			errAttrs := append(attrs, attribute.String("error_code", errorCode(err)))
			m.ScoringErrors.Add(ctx, 1, metric.WithAttributes(errAttrs...))
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

// RecordBusinessMetric adds n to the counter named by metricType
func (om *ObservabilityManager) RecordBusinessMetric(ctx context.Context, metricType string, n int64, attributes ...attribute.KeyValue) {
	m := om.GetMetrics()
	opt := metric.WithAttributes(attributes...)

	switch metricType {
	case MetricRateLimitHit:
		if m.RateLimitHits != nil && om.rateLimitMetricsEnabled() {
			m.RateLimitHits.Add(ctx, n, opt)
		}
		return
	}

	if !om.businessMetricsEnabled() {
		return
	}
	switch metricType {
	case MetricSessionCreated:
		addIfSet(ctx, m.SessionsCreated, n, opt)
	case MetricMatchesReceived:
		addIfSet(ctx, m.MatchesReceived, n, opt)
	case MetricReportExported:
		addIfSet(ctx, m.ReportsExported, n, opt)
	}
}

func addIfSet(ctx context.Context, c metric.Int64Counter, n int64, opt metric.AddOption) {
	if c != nil {
		c.Add(ctx, n, opt)
	}
}

func errorCode(err error) string {
	if appErr, ok := errors.As(err); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func (om *ObservabilityManager) scoringMetricsEnabled() bool {
	return om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.ScoringOperations
}

func (om *ObservabilityManager) businessMetricsEnabled() bool {
	return om == nil || om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.BusinessMetrics
}

func (om *ObservabilityManager) rateLimitMetricsEnabled() bool {
	return om == nil || om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.TrackRateLimits
}

func (om *ObservabilityManager) otlpEnabled() bool {
	return om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled
}

// No-op exporter for when no trace destination is configured
type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *ObservabilityManager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	interval := om.getMetricsCollectionInterval()
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil
}

// getServiceInstanceID returns the service instance ID from config or a fixed fallback
func (om *ObservabilityManager) getServiceInstanceID() string {
	if om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "" {
		return om.fullConfig.Observability.ServiceInstance
	}
	return om.config.ServiceName + "-1"
}

// getMetricsCollectionInterval returns the configured metrics collection interval
func (om *ObservabilityManager) getMetricsCollectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}
