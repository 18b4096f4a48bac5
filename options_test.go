package querytap

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/trailside/querytap/client"
	"github.com/trailside/querytap/clienttest"
)

func TestNewConfig(t *testing.T) {
	type args struct {
		opts []Option
	}

	tests := []struct {
		name       string
		args       args
		wantAssert func(*config) bool
	}{
		{
			name: "given no options, then uses global providers and defaults",
			args: args{opts: nil},
			wantAssert: func(cfg *config) bool {
				return cfg.TracerProvider != nil &&
					cfg.MeterProvider != nil &&
					cfg.ConnAttributes != nil
			},
		},
		{
			name: "given WithDBSystem, then sets DBSystem",
			args: args{opts: []Option{WithDBSystem("mysql")}},
			wantAssert: func(cfg *config) bool {
				return cfg.DBSystem == "mysql"
			},
		},
		{
			name: "given WithInstanceName, then sets InstanceName",
			args: args{opts: []Option{WithInstanceName("replica")}},
			wantAssert: func(cfg *config) bool {
				return cfg.InstanceName == "replica"
			},
		},
		{
			name: "given WithDisableStatement, then sets DisableStatement",
			args: args{opts: []Option{WithDisableStatement()}},
			wantAssert: func(cfg *config) bool {
				return cfg.DisableStatement
			},
		},
		{
			name: "given WithQuerySanitizer, then sets sanitizer",
			args: args{opts: []Option{WithQuerySanitizer(DefaultQuerySanitizer)}},
			wantAssert: func(cfg *config) bool {
				return cfg.QuerySanitizer != nil
			},
		},
		{
			name: "given WithStatementFormatter, then sets formatter",
			args: args{opts: []Option{WithStatementFormatter(clienttest.Format)}},
			wantAssert: func(cfg *config) bool {
				return cfg.Formatter != nil
			},
		},
		{
			name: "given WithLogger, then sets logger",
			args: args{opts: []Option{WithLogger(zerolog.Nop())}},
			wantAssert: func(cfg *config) bool {
				return cfg.Logger.GetLevel() == zerolog.Disabled
			},
		},
		{
			name: "given nil WithConnAttributes, then default extractor is restored",
			args: args{opts: []Option{WithConnAttributes(nil)}},
			wantAssert: func(cfg *config) bool {
				return cfg.ConnAttributes != nil
			},
		},
		{
			name: "given multiple options, then applies all",
			args: args{
				opts: []Option{
					WithDBSystem("mariadb"),
					WithInstanceName("primary"),
				},
			},
			wantAssert: func(cfg *config) bool {
				return cfg.DBSystem == "mariadb" && cfg.InstanceName == "primary"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newConfig(tt.args.opts...)
			require.NotNil(t, cfg)
			assert.True(t, tt.wantAssert(cfg))
		})
	}
}

func TestConfiguredFormatterWinsOverModule(t *testing.T) {
	t.Run("given explicit formatter, then module Format is not used", func(t *testing.T) {
		custom := func(text string, _ []any) string { return text + " /* custom */" }

		tap, exporter := newTestTap(t, WithStatementFormatter(custom))
		mod := tap.Enable(clienttest.NewModule())

		conn := mod.CreateConnection(testConfig)
		stream := conn.Query("SELECT ?", []any{5}).(*clienttest.Stream)
		stream.EmitEnd()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "SELECT ? /* custom */", attrMap(spans[0])["db.statement"].AsString())
	})
}

func TestCustomConnAttributes(t *testing.T) {
	t.Run("given custom extractor, then it replaces the default", func(t *testing.T) {
		tap, exporter := newTestTap(t, WithConnAttributes(func(cc client.Config) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("server.address", cc.Host)}
		}))
		mod := tap.Enable(clienttest.NewModule())

		conn := mod.CreateConnection(testConfig)
		conn.Query("SELECT 1", client.QueryCallback(func(error, any, any) {}))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		attrs := attrMap(spans[0])
		assert.Equal(t, "localhost", attrs["server.address"].AsString())
		_, hasDefault := attrs["net.peer.name"]
		assert.False(t, hasDefault)
	})
}
