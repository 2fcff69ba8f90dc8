// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import "errors"

var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNilParameter       = errors.New("nil parameter")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrUnexpectedStatus   = errors.New("unexpected response status")
	ErrInvalidResponse    = errors.New("invalid response")
)
