package querytap

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trailside/querytap/client"
)

// queryInterceptor installs the span-producing decorator on the query
// slot of connection-like and pool-like objects. The wrapped set
// doubles as the idempotency marker and as the ledger of original
// slots needed to restore a target.
type queryInterceptor struct {
	cfg   *config
	state *state

	mu      sync.Mutex
	format  client.FormatFunc
	wrapped map[client.Conn]client.QueryFunc
}

func newQueryInterceptor(cfg *config, st *state) *queryInterceptor {
	return &queryInterceptor{
		cfg:     cfg,
		state:   st,
		format:  cfg.Formatter,
		wrapped: make(map[client.Conn]client.QueryFunc),
	}
}

// setFormat installs the statement formatter. An explicitly configured
// formatter wins over the client module's own.
func (qi *queryInterceptor) setFormat(fn client.FormatFunc) {
	qi.mu.Lock()
	defer qi.mu.Unlock()
	if qi.cfg.Formatter == nil {
		qi.format = fn
	}
}

func (qi *queryInterceptor) formatter() client.FormatFunc {
	qi.mu.Lock()
	defer qi.mu.Unlock()
	return qi.format
}

// wrap installs the decorator on target's query slot. Wrapping an
// already wrapped target is a no-op: a pooled connection acquired
// repeatedly must not stack decorators.
func (qi *queryInterceptor) wrap(target client.Conn) {
	qi.mu.Lock()
	defer qi.mu.Unlock()
	if _, ok := qi.wrapped[target]; ok {
		return
	}
	orig := target.QueryFunc()
	qi.wrapped[target] = orig
	target.SetQueryFunc(qi.intercept(target, orig))
}

// unwrap restores the original slot. A target that was never wrapped,
// or was already unwrapped, is left untouched.
func (qi *queryInterceptor) unwrap(target client.Conn) {
	qi.mu.Lock()
	defer qi.mu.Unlock()
	orig, ok := qi.wrapped[target]
	if !ok {
		return
	}
	delete(qi.wrapped, target)
	target.SetQueryFunc(orig)
}

func (qi *queryInterceptor) isWrapped(target client.Conn) bool {
	qi.mu.Lock()
	defer qi.mu.Unlock()
	_, ok := qi.wrapped[target]
	return ok
}

// intercept builds the decorated query function for one target.
func (qi *queryInterceptor) intercept(target client.Conn, orig client.QueryFunc) client.QueryFunc {
	return func(args ...any) any {
		if !qi.state.active() {
			// Instrumentation was disabled after this object was
			// produced. Restore the original slot so later calls skip
			// the decorator entirely, then delegate untouched.
			qi.unwrap(target)
			qi.cfg.Logger.Debug().
				Str("peer", peerLabel(target.Config())).
				Msg("instrumentation disabled, query slot restored")
			return orig(args...)
		}

		call := resolveQueryCall(args)
		closer := qi.startSpan(target, call)

		switch call.shape {
		case shapeCallback, shapeCallbackValues:
			user := call.callback
			args[call.cbIndex] = client.QueryCallback(func(err error, results, fields any) {
				closer.finish(err)
				user(err, results, fields)
			})
			return orig(args...)
		default:
			result := orig(args...)
			if stream, ok := result.(client.Stream); ok {
				stream.OnError(closer.fail)
				stream.OnEnd(closer.end)
				return result
			}
			// Neither stream nor callback: nothing will ever deliver a
			// completion, so end now instead of leaking the span.
			qi.cfg.Logger.Debug().
				Str("statement", call.text).
				Msg("query has no callback and returned no stream, span ended immediately")
			closer.finish(nil)
			return result
		}
	}
}

// startSpan opens the span for one query invocation and returns its
// closer.
func (qi *queryInterceptor) startSpan(target client.Conn, call queryCall) *spanCloser {
	cfg := qi.cfg
	statement := renderStatement(qi.formatter(), call)

	ctx, span := cfg.Tracer.Start(context.Background(), spanName(call.text),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(cfg.queryAttributes(target.Config(), statement)...),
	)

	return &spanCloser{
		ctx:       ctx,
		span:      span,
		start:     time.Now(),
		metrics:   cfg.Metrics,
		operation: extractOperation(call.text),
		attrs:     cfg.baseAttributes(),
	}
}

// spanCloser pairs a span with its exactly-once termination. The
// callback shim and the stream listeners may both try to close the
// same span; the Once guarantees a single End no matter which path
// runs, or how often.
type spanCloser struct {
	ctx   context.Context
	span  trace.Span
	start time.Time

	metrics   *metrics
	operation string
	attrs     []attribute.KeyValue

	once sync.Once

	mu  sync.Mutex
	err error
}

// fail records an error status without ending the span. A streaming
// result reports errors and termination as separate events, and the
// recorded error must survive until the end event closes the span.
func (c *spanCloser) fail(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()

	c.span.RecordError(err)
	c.span.SetStatus(codes.Error, err.Error())
}

// end terminates the span exactly once, keeping any previously
// recorded error status rather than overwriting it with success.
func (c *spanCloser) end() {
	c.once.Do(func() {
		c.mu.Lock()
		err := c.err
		c.mu.Unlock()

		if err == nil {
			c.span.SetStatus(codes.Ok, "")
		}
		c.span.End()
		c.metrics.recordQueryDuration(c.ctx, time.Since(c.start), c.operation, c.attrs, err)
	})
}

// finish records the outcome and terminates in one step. Callback
// shapes and the immediate-end fallback use it.
func (c *spanCloser) finish(err error) {
	c.fail(err)
	c.end()
}
