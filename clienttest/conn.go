package clienttest

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trailside/querytap/client"
)

// Compile-time interface checks.
var (
	_ client.Conn   = (*Conn)(nil)
	_ client.Stream = (*Stream)(nil)
)

// QueryCall records one invocation of a connection's query entry point
// as the connection itself received it.
type QueryCall struct {
	Text     string
	Values   []any
	Callback bool
}

// Conn is a fake connection. Its query outcome is scripted with
// ScriptResult or ScriptError; callback-shaped queries deliver the
// scripted outcome synchronously, streaming queries return a *Stream
// the test drives by hand.
type Conn struct {
	mu      sync.Mutex
	id      string
	cfg     client.Config
	queryFn client.QueryFunc

	results any
	fields  any
	err     error

	calls   []QueryCall
	streams []*Stream
}

// NewConn returns a fake connection with the given configuration.
func NewConn(cfg client.Config) *Conn {
	c := &Conn{
		id:  uuid.NewString(),
		cfg: cfg,
	}
	c.queryFn = c.execute
	return c
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// Config implements client.Conn.
func (c *Conn) Config() client.Config { return c.cfg }

// Query implements client.Conn by dispatching through the current
// query slot.
func (c *Conn) Query(args ...any) any { return c.QueryFunc()(args...) }

// QueryFunc implements client.Conn.
func (c *Conn) QueryFunc() client.QueryFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryFn
}

// SetQueryFunc implements client.Conn.
func (c *Conn) SetQueryFunc(fn client.QueryFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queryFn = fn
}

// ScriptResult scripts the rows delivered to callback-shaped queries.
func (c *Conn) ScriptResult(results any) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = results
	return c
}

// ScriptFields scripts the field descriptors delivered alongside
// results.
func (c *Conn) ScriptFields(fields any) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields = fields
	return c
}

// ScriptError scripts the error delivered to callback-shaped queries.
func (c *Conn) ScriptError(err error) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	return c
}

// Calls returns the query invocations the connection has received.
func (c *Conn) Calls() []QueryCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]QueryCall(nil), c.calls...)
}

// Streams returns the streams handed out for streaming queries, in
// order.
func (c *Conn) Streams() []*Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Stream(nil), c.streams...)
}

// execute is the connection's base query entry point. It recognizes
// the same call shapes as a real client: a trailing callback receives
// the scripted outcome synchronously, anything else yields a stream.
func (c *Conn) execute(args ...any) any {
	call := QueryCall{}
	if len(args) > 0 {
		switch first := args[0].(type) {
		case string:
			call.Text = first
		case client.Statement:
			call.Text = first.Text
			call.Values = first.Values
		case *client.Statement:
			call.Text = first.Text
			call.Values = first.Values
		}
	}

	var cb client.QueryCallback
	for i := len(args) - 1; i >= 1; i-- {
		switch fn := args[i].(type) {
		case client.QueryCallback:
			cb = fn
		case func(error, any, any):
			cb = fn
		}
		if cb != nil {
			break
		}
	}
	if cb != nil {
		if len(args) == 3 {
			if vals, ok := args[1].([]any); ok {
				call.Values = vals
			}
		}
		call.Callback = true
	} else if len(args) == 2 {
		if vals, ok := args[1].([]any); ok {
			call.Values = vals
		}
	}

	c.mu.Lock()
	c.calls = append(c.calls, call)
	results, fields, err := c.results, c.fields, c.err
	c.mu.Unlock()

	if cb != nil {
		cb(err, results, fields)
		return nil
	}

	stream := NewStream()
	c.mu.Lock()
	c.streams = append(c.streams, stream)
	c.mu.Unlock()
	return stream
}

// Stream is a manually driven event stream.
type Stream struct {
	mu     sync.Mutex
	errFns []func(err error)
	endFns []func()
}

// NewStream returns an empty stream.
func NewStream() *Stream { return &Stream{} }

// OnError implements client.Stream.
func (s *Stream) OnError(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errFns = append(s.errFns, fn)
}

// OnEnd implements client.Stream.
func (s *Stream) OnEnd(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endFns = append(s.endFns, fn)
}

// EmitError delivers an error event to all registered listeners.
func (s *Stream) EmitError(err error) {
	s.mu.Lock()
	fns := append(([]func(error))(nil), s.errFns...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

// EmitEnd delivers the termination event to all registered listeners.
func (s *Stream) EmitEnd() {
	s.mu.Lock()
	fns := append(([]func())(nil), s.endFns...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
