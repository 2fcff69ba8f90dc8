// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding/json"
	"fmt"
)

func ExampleParseQuery() {
	p := ParseQuery("http://localhost:8080/auth?code=abc&state=xyz&debug")
	fmt.Println(p.Keys())
	fmt.Println(p.Value("code"))

	body, _ := json.Marshal(p)
	fmt.Println(string(body))
	// Output:
	// [code state debug]
	// abc
	// {"code":"abc","state":"xyz","debug":null}
}

func ExampleHandler() {
	ctx := context.Background()

	// In a browser, BindDocument provides the page; here a TestPage stands in.
	page := NewTestPage("http://localhost:8080/auth?code=abc&state=xyz")

	h, err := NewHandler("http://localhost:8080", page, page, page)
	if err != nil {
		// handle error
	}
	if err := h.Initialize(ctx, page); err != nil {
		// handle error
	}
	// Every click of the close control now posts the page's query parameters
	// to /auth/code, then calls /shutdown and closes the window.
}
