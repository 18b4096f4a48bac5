package querytap

import (
	"regexp"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/trailside/querytap/client"
)

// Regex patterns for statement sanitization.
var (
	// stringLiteralRegex matches single-quoted strings, handling escaped quotes.
	stringLiteralRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)

	// numericLiteralRegex matches integer and float literals.
	numericLiteralRegex = regexp.MustCompile(`\b\d+\.?\d*\b`)

	// hexLiteralRegex matches hex literals such as 0xDEADBEEF.
	hexLiteralRegex = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
)

// spanName returns a span name derived from the statement text.
// Span names must not be empty, so unknown statements fall back to
// "SQL".
func spanName(query string) string {
	if op := extractOperation(query); op != "" {
		return op
	}
	return "SQL"
}

// extractOperation returns the statement's leading keyword (SELECT,
// INSERT, ...) uppercased, or an empty string for an empty statement.
func extractOperation(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	spaceIdx := strings.IndexAny(query, " \t\n\r")
	if spaceIdx == -1 {
		return strings.ToUpper(query)
	}

	return strings.ToUpper(query[:spaceIdx])
}

// DefaultQuerySanitizer is a basic statement sanitizer that replaces
// literal values with placeholders so sensitive data does not land in
// traces:
//
//	DefaultQuerySanitizer("SELECT * FROM users WHERE name = 'john'")
//	// returns "SELECT * FROM users WHERE name = '?'"
//
// It is regex based; statements with exotic quoting may need a real
// SQL parser instead.
func DefaultQuerySanitizer(query string) string {
	query = stringLiteralRegex.ReplaceAllString(query, "'?'")
	query = numericLiteralRegex.ReplaceAllString(query, "?")
	query = hexLiteralRegex.ReplaceAllString(query, "?")
	return query
}

// baseAttributes returns the attributes shared by all spans and
// metrics of this instrumentation instance.
func (cfg *config) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if cfg.DBSystem != "" {
		attrs = append(attrs, attribute.String("db.system", cfg.DBSystem))
	}
	if cfg.InstanceName != "" {
		attrs = append(attrs, attribute.String("db.instance", cfg.InstanceName))
	}
	return attrs
}

// defaultConnAttributes maps a connection configuration record onto
// span attributes.
func defaultConnAttributes(cc client.Config) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if cc.Host != "" {
		attrs = append(attrs, attribute.String("net.peer.name", cc.Host))
	}
	if cc.Port != 0 {
		attrs = append(attrs, attribute.Int("net.peer.port", cc.Port))
	}
	if cc.User != "" {
		attrs = append(attrs, attribute.String("db.user", cc.User))
	}
	if cc.Database != "" {
		attrs = append(attrs, attribute.String("db.name", cc.Database))
	}
	return attrs
}

// queryAttributes assembles the attribute set for one query span.
func (cfg *config) queryAttributes(cc client.Config, statement string) []attribute.KeyValue {
	attrs := cfg.baseAttributes()
	attrs = append(attrs, cfg.ConnAttributes(cc)...)

	if op := extractOperation(statement); op != "" {
		attrs = append(attrs, attribute.String("db.operation", op))
	}

	if !cfg.DisableStatement && statement != "" {
		recorded := statement
		if cfg.QuerySanitizer != nil {
			recorded = cfg.QuerySanitizer(recorded)
		}
		attrs = append(attrs, attribute.String("db.statement", recorded))
	}

	return attrs
}

// renderStatement computes the statement text recorded on the span.
// When bind values were supplied they are rendered into the text with
// the formatter; otherwise the raw text is used.
func renderStatement(format client.FormatFunc, call queryCall) string {
	if call.hasValues && format != nil {
		return format(call.text, call.values)
	}
	return call.text
}

// peerLabel is a compact host:port label used in debug logs.
func peerLabel(cc client.Config) string {
	if cc.Port == 0 {
		return cc.Host
	}
	return cc.Host + ":" + strconv.Itoa(cc.Port)
}
