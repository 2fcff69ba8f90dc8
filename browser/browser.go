// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package browser opens URLs in the user's default browser.
package browser

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
)

// Opener opens a URL for the user.
type Opener func(url string) error

// output from the launched command would interleave with the CLI's own
func init() {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Open opens url in the default browser.
func Open(url string) error {
	const op = "browser.Open"
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
