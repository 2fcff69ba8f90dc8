// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build js && wasm

package callback

import (
	"syscall/js"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDOM installs a minimal document, location, alert and close on the JS
// global object, which is enough for Document under go_js_wasm_exec.
type testDOM struct {
	listeners []js.Value
	alerts    []string
	closes    int
	funcs     []js.Func
}

func newTestDOM(t *testing.T, controlID, href, origin string) *testDOM {
	t.Helper()
	d := &testDOM{}
	g := js.Global()
	object := g.Get("Object")

	control := object.New()
	control.Set("addEventListener", d.funcOf(func(args []js.Value) interface{} {
		d.listeners = append(d.listeners, args[1])
		return nil
	}))
	control.Set("removeEventListener", d.funcOf(func(args []js.Value) interface{} {
		for i, l := range d.listeners {
			if l.Equal(args[1]) {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				break
			}
		}
		return nil
	}))

	document := object.New()
	document.Set("getElementById", d.funcOf(func(args []js.Value) interface{} {
		if args[0].String() == controlID {
			return control
		}
		return js.Null()
	}))

	location := object.New()
	location.Set("href", href)
	location.Set("origin", origin)

	g.Set("document", document)
	g.Set("location", location)
	g.Set("alert", d.funcOf(func(args []js.Value) interface{} {
		d.alerts = append(d.alerts, args[0].String())
		return nil
	}))
	g.Set("close", d.funcOf(func([]js.Value) interface{} {
		d.closes++
		return nil
	}))

	t.Cleanup(func() {
		for _, name := range []string{"document", "location", "alert", "close"} {
			g.Delete(name)
		}
		for _, f := range d.funcs {
			f.Release()
		}
	})
	return d
}

func (d *testDOM) funcOf(fn func(args []js.Value) interface{}) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) interface{} { return fn(args) })
	d.funcs = append(d.funcs, f)
	return f
}

// click dispatches a click event to every listener and reports whether
// preventDefault was called.
func (d *testDOM) click() bool {
	prevented := false
	ev := js.Global().Get("Object").New()
	pd := js.FuncOf(func(js.Value, []js.Value) interface{} {
		prevented = true
		return nil
	})
	defer pd.Release()
	ev.Set("preventDefault", pd)
	for _, l := range d.listeners {
		l.Invoke(ev)
	}
	return prevented
}

func TestBindDocument(t *testing.T) {
	newTestDOM(t, "closeButton", "http://localhost:8080/auth?code=abc", "http://localhost:8080")
	tests := []struct {
		name      string
		id        string
		wantIsErr error
	}{
		{name: "found", id: "closeButton"},
		{name: "missing", id: "other", wantIsErr: ErrNotFound},
		{name: "empty-id", wantIsErr: ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			doc, err := BindDocument(tt.id)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantIsErr)
				return
			}
			require.NoError(err)
			assert.NotNil(doc)
		})
	}
}

func TestDocument(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	dom := newTestDOM(t, "closeButton", "http://localhost:8080/auth?code=abc&state=xyz", "http://localhost:8080")
	doc, err := BindDocument("closeButton")
	require.NoError(err)

	assert.Equal("http://localhost:8080/auth?code=abc&state=xyz", doc.Href())
	assert.Equal("http://localhost:8080", doc.Origin())

	doc.Alert(AlertMessage)
	assert.Equal([]string{AlertMessage}, dom.alerts)
	doc.Close()
	assert.Equal(1, dom.closes)

	clicks := 0
	doc.OnClick(func(ev Event) {
		clicks++
		ev.PreventDefault()
	})
	require.Len(dom.listeners, 1)
	assert.True(dom.click())
	assert.Equal(1, clicks)

	doc.Release()
	assert.Empty(dom.listeners)
	assert.False(dom.click())
	assert.Equal(1, clicks)
}

func TestJSEvent_PreventDefault(t *testing.T) {
	assert := assert.New(t)
	assert.NotPanics(func() { jsEvent{v: js.Undefined()}.PreventDefault() })
	assert.NotPanics(func() { jsEvent{}.PreventDefault() })
}
