// Package console provides typed calls to the admin console backend.
//
// Every call goes through a [Doer], normally a *consoleauth.Client, so token
// attachment, refresh and replay happen below this package. Responses use
// the backend envelope {code, message, data}; a 2xx response whose code is
// not a success code is returned as a *BusinessError.
//
// # Architecture boundaries
//
// This package only shapes requests and decodes replies. It holds no token
// and never refreshes. Permission checks on [UserInfo] use the permission
// package.
//
// # What this package must NOT do
//
//   - Call SetToken, ClearToken or Refresh on the client.
//   - Retry failed calls.
//   - Interpret business semantics beyond envelope codes.
package console
