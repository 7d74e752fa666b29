// Package httputil provides HTTP utilities for REST-backed adapters.
//
// # Overview
//
// This package provides infrastructure used by the record store clients:
//
//   - [Client]: JSON requests with default headers and status mapping
//   - [Retry]: Automatic retry with exponential backoff
//
// # Client
//
// [Client] sends JSON bodies, decodes JSON responses and maps status codes
// onto sentinel errors:
//
//	c := httputil.NewClient("https://api.airtable.com/v0/appXXX", map[string]string{
//	    "Authorization": "Bearer " + token,
//	})
//	var rec struct{ Fields map[string]any }
//	err := c.Get(ctx, "/Services/recXXX", &rec)
//	if errors.Is(err, httputil.ErrNotFound) { ... }
//
// Every request reports to [observability.HTTP] hooks.
//
// # Retry
//
// [Retry] wraps operations with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// It uses exponential backoff:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return doSomething()
//	})
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Request timeout: 30 seconds
//   - Max retries: 3
//   - Base backoff: 1 second
package httputil
