package querytap

import (
	"context"
	"sync"

	"github.com/trailside/querytap/client"
)

// acquireInterceptor installs a decorator on the acquisition slot of
// pool-like and cluster-like objects. The decorator does not trace the
// acquisition itself; its job is to reach every connection the pool
// hands out and give it an instrumented query slot.
type acquireInterceptor struct {
	cfg     *config
	state   *state
	queries *queryInterceptor

	mu      sync.Mutex
	wrapped map[client.Acquirer]client.AcquireFunc
}

func newAcquireInterceptor(cfg *config, st *state, queries *queryInterceptor) *acquireInterceptor {
	return &acquireInterceptor{
		cfg:     cfg,
		state:   st,
		queries: queries,
		wrapped: make(map[client.Acquirer]client.AcquireFunc),
	}
}

// wrap installs the decorator on target's acquisition slot. Wrapping
// twice is a no-op.
func (ai *acquireInterceptor) wrap(target client.Acquirer) {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	if _, ok := ai.wrapped[target]; ok {
		return
	}
	orig := target.AcquireFunc()
	ai.wrapped[target] = orig
	target.SetAcquireFunc(ai.intercept(target, orig))
}

// unwrap restores the original slot; a no-op for targets that were
// never wrapped.
func (ai *acquireInterceptor) unwrap(target client.Acquirer) {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	orig, ok := ai.wrapped[target]
	if !ok {
		return
	}
	delete(ai.wrapped, target)
	target.SetAcquireFunc(orig)
}

func (ai *acquireInterceptor) isWrapped(target client.Acquirer) bool {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	_, ok := ai.wrapped[target]
	return ok
}

// intercept builds the decorated acquisition function for one target.
// The acquisition may carry zero to two selector arguments ahead of
// the callback; selectors pass through untouched and only the callback
// is substituted.
func (ai *acquireInterceptor) intercept(target client.Acquirer, orig client.AcquireFunc) client.AcquireFunc {
	return func(args ...any) {
		if !ai.state.active() {
			// One-time self-heal, mirroring the query decorator.
			ai.unwrap(target)
			ai.cfg.Logger.Debug().Msg("instrumentation disabled, acquisition slot restored")
			orig(args...)
			return
		}

		cb, idx := resolveAcquireCallback(args)
		if idx < 0 {
			orig(args...)
			return
		}

		args[idx] = client.AcquireCallback(func(err error, conn client.Conn) {
			if err == nil && conn != nil {
				// Pooled connections come back again and again; wrap
				// is idempotent so the query slot is decorated at most
				// once per physical connection.
				ai.queries.wrap(conn)
			}
			ai.cfg.Metrics.recordAcquisition(context.Background(), ai.cfg.baseAttributes(), err)
			cb(err, conn)
		})
		orig(args...)
	}
}
