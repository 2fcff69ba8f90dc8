// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// localauth provides a collection of related packages which complete an
// OAuth2/OIDC authorization code login for a command line or desktop tool
// through a short-lived local server.
//
//   - flow runs the whole login.
//   - server is the local server the provider redirects the browser to.
//   - callback is the page side: it forwards the redirect's query parameters
//     to the server, asks it to shut down and closes the window.
//
// See examples/cli and examples/wasm.
package localauth
