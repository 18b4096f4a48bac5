package querytap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailside/querytap/client"
)

func TestResolveQueryCall(t *testing.T) {
	noopCb := client.QueryCallback(func(error, any, any) {})

	type args struct {
		callArgs []any
	}

	tests := []struct {
		name         string
		args         args
		wantShape    callShape
		wantText     string
		wantValues   []any
		wantHasVals  bool
		wantCallback bool
		wantCbIndex  int
	}{
		{
			name:        "given single text argument, then shape is streaming",
			args:        args{callArgs: []any{"SELECT 1"}},
			wantShape:   shapeStreaming,
			wantText:    "SELECT 1",
			wantCbIndex: -1,
		},
		{
			name:         "given text and callback, then shape is callback",
			args:         args{callArgs: []any{"SELECT 1", noopCb}},
			wantShape:    shapeCallback,
			wantText:     "SELECT 1",
			wantCallback: true,
			wantCbIndex:  1,
		},
		{
			name:         "given text, values and callback, then shape is callback with values",
			args:         args{callArgs: []any{"SELECT ?", []any{5}, noopCb}},
			wantShape:    shapeCallbackValues,
			wantText:     "SELECT ?",
			wantValues:   []any{5},
			wantHasVals:  true,
			wantCallback: true,
			wantCbIndex:  2,
		},
		{
			name:         "given bare function callback, then it is recognized by type",
			args:         args{callArgs: []any{"SELECT 1", func(error, any, any) {}}},
			wantShape:    shapeCallback,
			wantText:     "SELECT 1",
			wantCallback: true,
			wantCbIndex:  1,
		},
		{
			name:        "given text and values without callback, then shape stays streaming",
			args:        args{callArgs: []any{"SELECT ?", []any{5}}},
			wantShape:   shapeStreaming,
			wantText:    "SELECT ?",
			wantValues:  []any{5},
			wantHasVals: true,
			wantCbIndex: -1,
		},
		{
			name:        "given single non-slice value, then it becomes a one-element list",
			args:        args{callArgs: []any{"SELECT ?", 5}},
			wantShape:   shapeStreaming,
			wantText:    "SELECT ?",
			wantValues:  []any{5},
			wantHasVals: true,
			wantCbIndex: -1,
		},
		{
			name:        "given structured statement, then its text and values surface",
			args:        args{callArgs: []any{client.Statement{Text: "SELECT ?", Values: []any{1}}}},
			wantShape:   shapeStreaming,
			wantText:    "SELECT ?",
			wantValues:  []any{1},
			wantHasVals: true,
			wantCbIndex: -1,
		},
		{
			name:         "given statement pointer with callback, then text and shape resolve",
			args:         args{callArgs: []any{&client.Statement{Text: "DELETE FROM t"}, noopCb}},
			wantShape:    shapeCallback,
			wantText:     "DELETE FROM t",
			wantCallback: true,
			wantCbIndex:  1,
		},
		{
			name:        "given no arguments, then shape defaults to streaming",
			args:        args{callArgs: nil},
			wantShape:   shapeStreaming,
			wantCbIndex: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveQueryCall(tt.args.callArgs)

			assert.Equal(t, tt.wantShape, got.shape)
			assert.Equal(t, tt.wantText, got.text)
			assert.Equal(t, tt.wantValues, got.values)
			assert.Equal(t, tt.wantHasVals, got.hasValues)
			assert.Equal(t, tt.wantCbIndex, got.cbIndex)
			if tt.wantCallback {
				require.NotNil(t, got.callback)
			} else {
				assert.Nil(t, got.callback)
			}
		})
	}
}

func TestResolveAcquireCallback(t *testing.T) {
	noopCb := client.AcquireCallback(func(error, client.Conn) {})

	type args struct {
		callArgs []any
	}

	tests := []struct {
		name      string
		args      args
		wantIndex int
	}{
		{
			name:      "given callback only, then it is found at position zero",
			args:      args{callArgs: []any{noopCb}},
			wantIndex: 0,
		},
		{
			name:      "given one selector and callback, then callback is found trailing",
			args:      args{callArgs: []any{"pattern", noopCb}},
			wantIndex: 1,
		},
		{
			name:      "given two selectors and callback, then callback is found trailing",
			args:      args{callArgs: []any{"pattern", "ORDER", noopCb}},
			wantIndex: 2,
		},
		{
			name:      "given bare function, then it is recognized by type",
			args:      args{callArgs: []any{"pattern", func(error, client.Conn) {}}},
			wantIndex: 1,
		},
		{
			name:      "given no callback, then index is -1",
			args:      args{callArgs: []any{"pattern", "ORDER"}},
			wantIndex: -1,
		},
		{
			name:      "given no arguments, then index is -1",
			args:      args{callArgs: nil},
			wantIndex: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, idx := resolveAcquireCallback(tt.args.callArgs)

			assert.Equal(t, tt.wantIndex, idx)
			if tt.wantIndex >= 0 {
				assert.NotNil(t, cb)
			} else {
				assert.Nil(t, cb)
			}
		})
	}
}
