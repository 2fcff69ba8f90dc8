// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package flow

import "errors"

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrIdGeneratorFailed         = errors.New("id generation failed")
	ErrResponseStateInvalid      = errors.New("response state invalid")
	ErrCodeExchangeFailed        = errors.New("code exchange failed")
	ErrMissingIdToken            = errors.New("id_token is missing")
	ErrIdTokenVerificationFailed = errors.New("id_token verification failed")
	ErrInvalidNonce              = errors.New("invalid nonce")
)
