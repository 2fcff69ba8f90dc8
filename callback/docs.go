// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides the page side of a local authentication
flow. A provider redirects the user's browser to a page served by a local
server; the page forwards the redirect's query parameters to that server and
then asks it to shut down.

The Handler is written against small interfaces for the page's location,
window, alert and close control so it can run inside a browser (see
BindDocument, available for js/wasm builds) or be driven directly in tests.
*/
package callback
