package querytap

import "github.com/trailside/querytap/client"

// factoryInterceptor decorates the client module's three construction
// entry points so that every produced object comes back with
// instrumented slots. The factory argument travels through unchanged,
// whether it is a DSN string or a structured configuration value, and
// the produced object is returned as is apart from its rebound slots.
type factoryInterceptor struct {
	queries  *queryInterceptor
	acquires *acquireInterceptor
}

func newFactoryInterceptor(queries *queryInterceptor, acquires *acquireInterceptor) *factoryInterceptor {
	return &factoryInterceptor{
		queries:  queries,
		acquires: acquires,
	}
}

// connection decorates the single-connection factory: the result is
// connection-like, so only its query slot is wrapped.
func (fi *factoryInterceptor) connection(orig func(target any) client.Conn) func(target any) client.Conn {
	return func(target any) client.Conn {
		conn := orig(target)
		if conn != nil {
			fi.queries.wrap(conn)
		}
		return conn
	}
}

// pool decorates the pool factory: pools execute queries directly and
// hand out member connections, so both slots are wrapped.
func (fi *factoryInterceptor) pool(orig func(target any) client.Pool) func(target any) client.Pool {
	return func(target any) client.Pool {
		pool := orig(target)
		if pool != nil {
			fi.queries.wrap(pool)
			fi.acquires.wrap(pool)
		}
		return pool
	}
}

// cluster decorates the cluster factory: clusters only acquire, so
// only the acquisition slot is wrapped.
func (fi *factoryInterceptor) cluster(orig func(target any) client.Cluster) func(target any) client.Cluster {
	return func(target any) client.Cluster {
		cl := orig(target)
		if cl != nil {
			fi.acquires.wrap(cl)
		}
		return cl
	}
}
