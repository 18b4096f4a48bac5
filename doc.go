// Package querytap instruments a callback-style database client with
// OpenTelemetry tracing and metrics, without the client library's
// cooperation.
//
// The client library exposes three factory functions producing
// connections, pools and clusters. Enabling the instrumentation
// rebinds those factories so every produced object comes back with a
// decorated query slot (connections, pools) and a decorated
// acquisition slot (pools, clusters). Each query invocation is
// resolved into one of three call shapes and produces exactly one
// span, ended exactly once by the callback shim or by the stream's
// termination event.
//
// # Quick Start
//
//	tap := querytap.New(
//	    querytap.WithDBSystem("mysql"),
//	    querytap.WithInstanceName("primary"),
//	)
//	mod = tap.Enable(mod)
//
//	conn := mod.CreateConnection("app@db-1:3306/orders")
//	conn.Query("SELECT * FROM orders WHERE id = ?", []any{42},
//	    client.QueryCallback(func(err error, results, fields any) {
//	        // one span, ended, status from err
//	    }))
//
// # Toggling
//
// Disable restores the module's factory bindings and flips the shared
// state off. Objects produced earlier are not tracked down: each
// decorated slot checks the state on every call, and on its first call
// after disabling it restores the original function and delegates, so
// no further overhead is paid at that call site.
//
// # Spans
//
// Span names derive from the statement's leading keyword. Attributes:
//
//   - db.system, db.instance (configuration)
//   - net.peer.name, net.peer.port, db.user, db.name (connection record)
//   - db.operation (statement keyword)
//   - db.statement (rendered against bind values, optionally sanitized)
//
// Driver results and errors are forwarded to the caller untouched; the
// instrumentation only observes them.
package querytap
