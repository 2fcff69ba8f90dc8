// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// storedToken is the content of a token file. The id_token is kept next to
// the oauth2.Token because Token.Extra does not survive encoding.
type storedToken struct {
	Token   *oauth2.Token `json:"token"`
	IDToken string        `json:"id_token,omitempty"`
}

// loadTokenFile reads path. A missing file is not an error: it returns a nil
// storedToken.
func loadTokenFile(path string) (*storedToken, error) {
	const op = "flow.loadTokenFile"
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var st storedToken
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("%s: unable to decode %q: %w", op, path, err)
	}
	if st.Token == nil || st.Token.AccessToken == "" {
		return nil, fmt.Errorf("%s: %q has no access token: %w", op, path, ErrInvalidParameter)
	}
	return &st, nil
}

// saveTokenFile replaces path with st, readable by the owner only.
func saveTokenFile(path string, st *storedToken) error {
	const op = "flow.saveTokenFile"
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
