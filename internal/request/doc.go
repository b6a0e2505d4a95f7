// Package request performs one-shot aggregated GET requests.
//
// A DataRequest fetches a labeled, ordered set of endpoints sequentially and
// stops at the first failure, keeping whatever results arrived before it.
// Re-fetching is keyed on Endpoints.Key: syncing the same shape again is a
// no-op, so a consumer that wants a retry builds a new DataRequest.
package request
