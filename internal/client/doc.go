// Package client is a Go client for the gotodo HTTP API.
//
// Client keeps the caller's token pair in a TokenStore and attaches the access
// token to every authenticated call. When the access token is about to expire
// (within the configured skew) it is refreshed before the call; when the server
// still answers 401 the call is retried exactly once after a refresh.
//
// Refreshes are de-duplicated: concurrent callers share a single in-flight
// refresh request and its result, so a rotated refresh token is never presented
// twice. A refresh the server rejects clears the stored tokens.
//
// Failures returned by the API surface as *APIError; errors.Is(err,
// ErrUnauthorized) reports a 401.
package client
