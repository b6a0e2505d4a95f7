// Package endpoint provides the HTTP and server-sent-event transport for the
// device API.
//
// # Overview
//
// Client wraps net/http with the conventions the device backend expects:
// relative endpoint paths ("api/v1/gpio") resolved against one base URL, a
// shared cookie jar carrying the session credential, JSON bodies, and a
// per-request X-Request-ID header.
//
// # Error Convention
//
// Every reply body is parsed as JSON before the status code is looked at:
//
//   - body is not JSON            -> "decode response: ..." error
//   - transport failure           -> "execute request: ..." error
//   - non-2xx with a JSON body    -> *APIError whose Body is the parsed reply
//   - 2xx                         -> body decoded into dest
//
// Callers that need the server's message use AsAPIError and Message.
//
// # Streams
//
// Subscriber is the seam between the live data layer and the transport. The
// production implementation, SSESubscriber, uses github.com/r3labs/sse/v2 and
// maps its connect/disconnect/reconnect callbacks to Handlers.OnOpen and
// Handlers.OnError. Message payloads are handed over as raw JSON; decoding
// and merging belong to the stream package.
package endpoint
