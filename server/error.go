// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import "errors"

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrResponseStateInvalid = errors.New("response state invalid")
	ErrMissingCode          = errors.New("code is missing")
	ErrLoginFailed          = errors.New("login failed")
	ErrServerClosed         = errors.New("server closed")
)
