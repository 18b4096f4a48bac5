package querytap

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/trailside/querytap/client"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/trailside/querytap"

// config holds the configuration for instrumentation.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// Meter is the meter instance created from MeterProvider.
	Meter metric.Meter

	// Metrics holds the metric instruments.
	Metrics *metrics

	// DBSystem identifies the database management system product.
	// Examples: "mysql", "mariadb", "postgresql"
	DBSystem string

	// InstanceName identifies a specific client instance, such as
	// "primary" or "replica". Added as the "db.instance" attribute.
	InstanceName string

	// ConnAttributes extracts span attributes from a connection's
	// configuration record. Defaults to defaultConnAttributes.
	ConnAttributes func(cc client.Config) []attribute.KeyValue

	// Formatter renders statement text against bind values for the
	// "db.statement" attribute. If nil, the client module's own Format
	// function is used.
	Formatter client.FormatFunc

	// QuerySanitizer sanitizes statement text before it is recorded.
	// If nil, statements are recorded as rendered.
	QuerySanitizer func(query string) string

	// DisableStatement disables recording of statement text entirely.
	DisableStatement bool

	// Logger receives debug-level events for enable, disable and the
	// self-healing unwrap path. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		ConnAttributes: defaultConnAttributes,
		Logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.ConnAttributes == nil {
		cfg.ConnAttributes = defaultConnAttributes
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Instruments are nil when registration fails; recording guards on that.
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// Option configures the instrumentation.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = mp
	}
}

// WithDBSystem sets the database system identifier.
// This is added as the "db.system" attribute on all spans.
//
// Example:
//
//	tap := querytap.New(querytap.WithDBSystem("mysql"))
func WithDBSystem(system string) Option {
	return func(cfg *config) {
		cfg.DBSystem = system
	}
}

// WithInstanceName sets an identifier for this client instance, added
// as the "db.instance" attribute. Use it to tell primary and replica
// traffic apart when both are instrumented in the same process.
func WithInstanceName(name string) Option {
	return func(cfg *config) {
		cfg.InstanceName = name
	}
}

// WithConnAttributes sets a custom extractor for connection-derived
// span attributes. The extractor receives the configuration record of
// the connection executing the query.
func WithConnAttributes(fn func(cc client.Config) []attribute.KeyValue) Option {
	return func(cfg *config) {
		cfg.ConnAttributes = fn
	}
}

// WithStatementFormatter sets a custom statement formatter, overriding
// the client module's own Format function.
func WithStatementFormatter(fn client.FormatFunc) Option {
	return func(cfg *config) {
		cfg.Formatter = fn
	}
}

// WithQuerySanitizer sets a sanitizer applied to statement text before
// it is recorded on spans. Use DefaultQuerySanitizer for a basic
// implementation that masks literals.
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDisableStatement disables recording of statement text in spans.
// The "db.operation" attribute is still recorded.
func WithDisableStatement() Option {
	return func(cfg *config) {
		cfg.DisableStatement = true
	}
}

// WithLogger sets the logger used for debug-level instrumentation
// events.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = logger
	}
}
