// Package client defines the surface of a callback-style database
// client library as consumed by querytap.
//
// The instrumented client is not database/sql: it hands out
// connection, pool and cluster objects from factory functions, and
// delivers query results either through a trailing callback or through
// an event stream. Objects expose their query and acquisition entry
// points as settable function slots so that a decorator of identical
// signature can be installed and later removed without the client
// library cooperating.
package client

// Config is the connection configuration record exposed by every
// connection-like object.
type Config struct {
	Host     string
	Port     int
	User     string
	Database string
}

// Statement is the structured form of the first query argument.
// Clients accept either a plain string or a Statement.
type Statement struct {
	Text   string
	Values []any
}

// QueryCallback receives the outcome of a query execution: the driver
// error (nil on success), the result rows and the field descriptors.
type QueryCallback func(err error, results any, fields any)

// AcquireCallback receives the outcome of a connection acquisition.
type AcquireCallback func(err error, conn Conn)

// QueryFunc is the query-execution entry point. It is invoked with one
// of three argument shapes:
//
//	q(text)              streaming: the returned value is a Stream
//	q(text, cb)          callback, no bind values
//	q(text, values, cb)  callback with bind values
//
// The first argument may be a string or a Statement. The values
// argument may be a slice or a single value.
type QueryFunc func(args ...any) any

// AcquireFunc is the connection-acquisition entry point. It accepts
// zero to two selector arguments (for example a cluster pattern and a
// selection policy) followed by a trailing AcquireCallback.
type AcquireFunc func(args ...any)

// FormatFunc renders a statement text against bind values, producing
// the text the server would execute.
type FormatFunc func(text string, values []any) string

// Stream is the event-emitting object returned by a streaming query.
// An error event may be followed by an end event; the end event always
// terminates the result.
type Stream interface {
	// OnError registers a listener for the error event.
	OnError(fn func(err error))
	// OnEnd registers a listener for the termination event.
	OnEnd(fn func())
}

// Conn is any connection-like object: it executes queries and carries
// a configuration record. Query dispatches through the current slot,
// so an installed decorator sees every call.
type Conn interface {
	Config() Config
	Query(args ...any) any
	QueryFunc() QueryFunc
	SetQueryFunc(fn QueryFunc)
}

// Acquirer is any object that hands out connections.
type Acquirer interface {
	Acquire(args ...any)
	AcquireFunc() AcquireFunc
	SetAcquireFunc(fn AcquireFunc)
}

// Pool is pool-like: it executes queries directly and acquires member
// connections. Acquired connections may be handed out repeatedly.
type Pool interface {
	Conn
	Acquirer
}

// Cluster is cluster-like: it only acquires connections, selected by
// the acquisition arguments.
type Cluster interface {
	Acquirer
}

// Module is the client library's exported surface: three factory
// functions and the statement formatter. The factory fields are
// rebound in place when instrumentation is enabled and restored when
// it is disabled. The factory argument is passed through unchanged,
// whether it is a DSN string or a structured configuration value.
type Module struct {
	CreateConnection  func(target any) Conn
	CreatePool        func(target any) Pool
	CreatePoolCluster func(target any) Cluster
	Format            FormatFunc
}
