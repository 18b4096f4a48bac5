package clienttest

import (
	"sync"

	"github.com/trailside/querytap/client"
)

// Compile-time interface checks.
var (
	_ client.Pool    = (*Pool)(nil)
	_ client.Cluster = (*Cluster)(nil)
)

// AcquireCall records one invocation of an acquisition entry point,
// keeping the selector arguments that preceded the callback.
type AcquireCall struct {
	Selectors []any
	Callback  bool
}

// Pool is a fake pool. It executes queries directly through an
// embedded connection and hands out a single member connection on
// every acquisition, so repeated acquisitions return the same physical
// connection exactly as a real pool may.
type Pool struct {
	*Conn

	amu        sync.Mutex
	acquireFn  client.AcquireFunc
	member     *Conn
	acquireErr error
	acquires   []AcquireCall
}

// NewPool returns a fake pool with the given configuration. The pool's
// member connection shares the configuration.
func NewPool(cfg client.Config) *Pool {
	p := &Pool{
		Conn:   NewConn(cfg),
		member: NewConn(cfg),
	}
	p.acquireFn = p.acquire
	return p
}

// Member returns the pool's single physical connection.
func (p *Pool) Member() *Conn { return p.member }

// ScriptAcquireError scripts the error delivered to acquisition
// callbacks. While set, no connection is handed out.
func (p *Pool) ScriptAcquireError(err error) *Pool {
	p.amu.Lock()
	defer p.amu.Unlock()
	p.acquireErr = err
	return p
}

// Acquires returns the acquisition invocations the pool has received.
func (p *Pool) Acquires() []AcquireCall {
	p.amu.Lock()
	defer p.amu.Unlock()
	return append([]AcquireCall(nil), p.acquires...)
}

// Acquire implements client.Acquirer by dispatching through the
// current acquisition slot.
func (p *Pool) Acquire(args ...any) { p.AcquireFunc()(args...) }

// AcquireFunc implements client.Acquirer.
func (p *Pool) AcquireFunc() client.AcquireFunc {
	p.amu.Lock()
	defer p.amu.Unlock()
	return p.acquireFn
}

// SetAcquireFunc implements client.Acquirer.
func (p *Pool) SetAcquireFunc(fn client.AcquireFunc) {
	p.amu.Lock()
	defer p.amu.Unlock()
	p.acquireFn = fn
}

// acquire is the pool's base acquisition entry point: the trailing
// argument is the callback, anything before it is a selector.
func (p *Pool) acquire(args ...any) {
	cb, selectors := splitAcquireArgs(args)

	p.amu.Lock()
	p.acquires = append(p.acquires, AcquireCall{Selectors: selectors, Callback: cb != nil})
	member, err := p.member, p.acquireErr
	p.amu.Unlock()

	if cb == nil {
		return
	}
	if err != nil {
		cb(err, nil)
		return
	}
	cb(nil, member)
}

// Cluster is a fake cluster. Acquisition accepts selector arguments
// (for example a node pattern) ahead of the callback and always hands
// out the same member connection.
type Cluster struct {
	mu         sync.Mutex
	acquireFn  client.AcquireFunc
	member     *Conn
	acquireErr error
	acquires   []AcquireCall
}

// NewCluster returns a fake cluster with one member connection.
func NewCluster(cfg client.Config) *Cluster {
	c := &Cluster{member: NewConn(cfg)}
	c.acquireFn = c.acquire
	return c
}

// Member returns the cluster's single member connection.
func (c *Cluster) Member() *Conn { return c.member }

// ScriptAcquireError scripts the error delivered to acquisition
// callbacks.
func (c *Cluster) ScriptAcquireError(err error) *Cluster {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquireErr = err
	return c
}

// Acquires returns the acquisition invocations the cluster has
// received.
func (c *Cluster) Acquires() []AcquireCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]AcquireCall(nil), c.acquires...)
}

// Acquire implements client.Acquirer by dispatching through the
// current acquisition slot.
func (c *Cluster) Acquire(args ...any) { c.AcquireFunc()(args...) }

// AcquireFunc implements client.Acquirer.
func (c *Cluster) AcquireFunc() client.AcquireFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquireFn
}

// SetAcquireFunc implements client.Acquirer.
func (c *Cluster) SetAcquireFunc(fn client.AcquireFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquireFn = fn
}

func (c *Cluster) acquire(args ...any) {
	cb, selectors := splitAcquireArgs(args)

	c.mu.Lock()
	c.acquires = append(c.acquires, AcquireCall{Selectors: selectors, Callback: cb != nil})
	member, err := c.member, c.acquireErr
	c.mu.Unlock()

	if cb == nil {
		return
	}
	if err != nil {
		cb(err, nil)
		return
	}
	cb(nil, member)
}

// splitAcquireArgs finds the trailing callback and returns it together
// with the selector arguments that preceded it.
func splitAcquireArgs(args []any) (client.AcquireCallback, []any) {
	for i := len(args) - 1; i >= 0; i-- {
		switch fn := args[i].(type) {
		case client.AcquireCallback:
			return fn, args[:i]
		case func(error, client.Conn):
			return fn, args[:i]
		}
	}
	return nil, args
}
