// Package stream keeps local state in sync with server-push channels.
//
// Stream owns the subscription lifecycle for one endpoint:
//
//	Disabled --SetEnabled(true)--> Subscribing --open--> Active
//	    ^                                                  |
//	    +------------- SetEnabled(false) / Close ----------+
//
// At most one subscription is live per Stream. Each opened subscription is
// closed exactly once, and events from a closed subscription are dropped
// even when they were already in flight. Re-enabling opens a new
// subscription.
//
// Request layers a shallow merge on top: every message is a JSON object
// whose top-level keys overwrite the accumulated Doc while other keys are
// kept. Disabling stops updates but retains the data.
//
// Gate computes an effective enable flag from a requested flag and a
// readiness predicate, which is how streams wait for authentication.
package stream
