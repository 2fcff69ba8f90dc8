// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

// Location reports the current page URL.
type Location interface {
	Href() string
}

// Window is the page's window; Close is called once the flow succeeds.
type Window interface {
	Close()
}

// Alerter shows a message to the user. Browser implementations block until the
// user dismisses it.
type Alerter interface {
	Alert(msg string)
}

// Event is the click event passed to a Control's listener.
type Event interface {
	PreventDefault()
}

// Control is the close control a Handler binds its click listener to.
type Control interface {
	OnClick(fn func(Event))
}
