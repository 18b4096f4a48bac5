package querytap

import (
	"sync"

	"github.com/trailside/querytap/client"
)

// Instrumentation is the activation boundary. It owns the shared
// enabled state consulted by every decorator at call time, and the
// saved originals of the client module's factory bindings.
//
// Enable rebinds the module's three factory functions; Disable
// restores them. Objects produced while enabled are not touched by
// Disable: their decorated slots notice the disabled state on their
// next call, restore themselves and delegate to the original.
type Instrumentation struct {
	cfg       *config
	state     *state
	queries   *queryInterceptor
	acquires  *acquireInterceptor
	factories *factoryInterceptor

	mu             sync.Mutex
	mod            *client.Module
	origConnection func(target any) client.Conn
	origPool       func(target any) client.Pool
	origCluster    func(target any) client.Cluster
}

// New creates an Instrumentation with the given options. Nothing is
// wrapped until Enable is called.
//
// Example:
//
//	tap := querytap.New(
//	    querytap.WithDBSystem("mysql"),
//	    querytap.WithQuerySanitizer(querytap.DefaultQuerySanitizer),
//	)
//	mod = tap.Enable(mod)
func New(opts ...Option) *Instrumentation {
	cfg := newConfig(opts...)
	st := &state{}
	queries := newQueryInterceptor(cfg, st)
	acquires := newAcquireInterceptor(cfg, st, queries)

	return &Instrumentation{
		cfg:       cfg,
		state:     st,
		queries:   queries,
		acquires:  acquires,
		factories: newFactoryInterceptor(queries, acquires),
	}
}

// Enable rebinds the module's factory functions to instrumented
// versions and flips the shared state to enabled. It returns the same
// module for convenience. Enabling an already enabled instrumentation
// is a no-op.
func (in *Instrumentation) Enable(mod *client.Module) *client.Module {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.mod != nil {
		return mod
	}
	in.mod = mod

	in.queries.setFormat(mod.Format)

	in.origConnection = mod.CreateConnection
	in.origPool = mod.CreatePool
	in.origCluster = mod.CreatePoolCluster

	if mod.CreateConnection != nil {
		mod.CreateConnection = in.factories.connection(mod.CreateConnection)
	}
	if mod.CreatePool != nil {
		mod.CreatePool = in.factories.pool(mod.CreatePool)
	}
	if mod.CreatePoolCluster != nil {
		mod.CreatePoolCluster = in.factories.cluster(mod.CreatePoolCluster)
	}

	in.state.set(true)
	in.cfg.Logger.Debug().Msg("instrumentation enabled")

	return mod
}

// Disable restores the module's original factory bindings and flips
// the shared state to disabled. Disabling without a prior Enable is a
// no-op. Connections, pools and clusters produced while enabled keep
// working; their decorated slots self-heal on their next call.
func (in *Instrumentation) Disable() {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.mod == nil {
		return
	}

	in.mod.CreateConnection = in.origConnection
	in.mod.CreatePool = in.origPool
	in.mod.CreatePoolCluster = in.origCluster

	in.mod = nil
	in.origConnection = nil
	in.origPool = nil
	in.origCluster = nil

	in.state.set(false)
	in.cfg.Logger.Debug().Msg("instrumentation disabled")
}

// Enabled reports whether the shared state is currently enabled.
func (in *Instrumentation) Enabled() bool {
	return in.state.active()
}
