// Package clienttest provides a scriptable in-memory implementation of
// the client contract for testing instrumented code.
//
// A fake module hands out fake connections whose outcomes are scripted
// per connection:
//
//	mod := clienttest.NewModule()
//	conn := mod.CreateConnection(client.Config{Host: "localhost"})
//	conn.(*clienttest.Conn).ScriptResult([]map[string]any{{"n": 1}})
//	conn.Query("SELECT 1", client.QueryCallback(func(err error, results, fields any) {
//	    ...
//	}))
//
// Streaming queries return a *Stream whose events are emitted by the
// test via EmitError and EmitEnd.
package clienttest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/trailside/querytap/client"
)

// NewModule returns a fake client module. Factories accept either a
// client.Config or a DSN string of the form "user@host:port/database".
func NewModule() *client.Module {
	return &client.Module{
		CreateConnection: func(target any) client.Conn {
			return NewConn(configFrom(target))
		},
		CreatePool: func(target any) client.Pool {
			return NewPool(configFrom(target))
		},
		CreatePoolCluster: func(target any) client.Cluster {
			return NewCluster(configFrom(target))
		},
		Format: Format,
	}
}

// Format renders bind values into a statement by substituting each "?"
// placeholder in order. Surplus placeholders are left untouched.
func Format(text string, values []any) string {
	if len(values) == 0 {
		return text
	}
	var b strings.Builder
	next := 0
	for _, r := range text {
		if r == '?' && next < len(values) {
			b.WriteString(formatValue(values[next]))
			next++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// formatValue renders a single bind value as SQL literal text.
// Non-scalar values are rendered as quoted JSON, matching how the real
// client serializes objects.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "\\'") + "'"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("'%v'", v)
		}
		return "'" + string(encoded) + "'"
	}
}

// configFrom accepts the factory argument in either supported form.
func configFrom(target any) client.Config {
	switch target := target.(type) {
	case client.Config:
		return target
	case *client.Config:
		return *target
	case string:
		return parseDSN(target)
	default:
		return client.Config{}
	}
}

// parseDSN parses "user@host:port/database". Missing parts are left
// zero valued.
func parseDSN(dsn string) client.Config {
	var cfg client.Config
	rest := dsn
	if at := strings.Index(rest, "@"); at >= 0 {
		cfg.User = rest[:at]
		rest = rest[at+1:]
	}
	if slash := strings.Index(rest, "/"); slash >= 0 {
		cfg.Database = rest[slash+1:]
		rest = rest[:slash]
	}
	if colon := strings.Index(rest, ":"); colon >= 0 {
		cfg.Host = rest[:colon]
		cfg.Port, _ = strconv.Atoi(rest[colon+1:])
	} else {
		cfg.Host = rest
	}
	return cfg
}
