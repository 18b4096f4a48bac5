package querytap

import "github.com/trailside/querytap/client"

// callShape classifies a query invocation by its positional arguments.
// Classification happens once, at the wrapper boundary, before any
// span logic runs.
type callShape int

const (
	// shapeStreaming: no callback anywhere; the result is consumed
	// through stream events.
	shapeStreaming callShape = iota
	// shapeCallback: the second argument is the callback.
	shapeCallback
	// shapeCallbackValues: the second argument holds bind values and
	// the third is the callback.
	shapeCallbackValues
)

// queryCall is a query invocation resolved into its parts.
type queryCall struct {
	shape     callShape
	text      string
	values    []any
	hasValues bool
	callback  client.QueryCallback
	cbIndex   int
}

// resolveQueryCall classifies args into one of the three call shapes.
// The first argument may be a string or a client.Statement; a
// Statement's embedded values count as supplied bind values. A call
// with no callback in either candidate position is streaming,
// regardless of argument count.
func resolveQueryCall(args []any) queryCall {
	call := queryCall{shape: shapeStreaming, cbIndex: -1}

	if len(args) == 0 {
		return call
	}

	switch first := args[0].(type) {
	case string:
		call.text = first
	case client.Statement:
		call.text = first.Text
		if first.Values != nil {
			call.values = first.Values
			call.hasValues = true
		}
	case *client.Statement:
		if first != nil {
			call.text = first.Text
			if first.Values != nil {
				call.values = first.Values
				call.hasValues = true
			}
		}
	}

	if len(args) >= 3 {
		if cb := asQueryCallback(args[2]); cb != nil {
			call.shape = shapeCallbackValues
			call.callback = cb
			call.cbIndex = 2
			call.values = valueList(args[1])
			call.hasValues = true
			return call
		}
	}

	if len(args) >= 2 {
		if cb := asQueryCallback(args[1]); cb != nil {
			call.shape = shapeCallback
			call.callback = cb
			call.cbIndex = 1
			return call
		}
		// Values without a callback: still a streaming call, the
		// values just feed statement rendering.
		call.values = valueList(args[1])
		call.hasValues = true
	}

	return call
}

// asQueryCallback returns args value as a query callback, accepting
// both the named type and a bare function of the same signature.
func asQueryCallback(v any) client.QueryCallback {
	switch fn := v.(type) {
	case client.QueryCallback:
		return fn
	case func(error, any, any):
		return fn
	default:
		return nil
	}
}

// valueList normalizes the bind-values argument: a slice is used as
// is, a single value becomes a one-element list.
func valueList(v any) []any {
	if vals, ok := v.([]any); ok {
		return vals
	}
	return []any{v}
}

// resolveAcquireCallback finds the trailing callback among acquisition
// arguments, scanning from the end past any selector arguments. It
// returns the callback and its position, or -1 when no argument is a
// callback.
func resolveAcquireCallback(args []any) (client.AcquireCallback, int) {
	for i := len(args) - 1; i >= 0; i-- {
		switch fn := args[i].(type) {
		case client.AcquireCallback:
			return fn, i
		case func(error, client.Conn):
			return fn, i
		}
	}
	return nil, -1
}
