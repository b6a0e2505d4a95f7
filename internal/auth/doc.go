// Package auth talks to the device's authentication endpoints and keeps the
// client's view of who is signed in.
//
// The session token is an opaque JWT cookie issued by the device. The client
// never creates or verifies it; it only reads it from the cookie jar, decodes
// its payload for display, and removes it on logout or when a check fails.
//
// Store is the single source of truth for one session scope. Its state moves
// only through CheckAuthState and ClearAuthState:
//
//	initial            {user: nil, token: "", complete: false}
//	check succeeded    {user: u,   token: t,  complete: true}
//	check failed       {user: nil, token: "", complete: true}
//	logout             {user: nil, token: "", complete: true}
//
// IsAuthenticated is derived as user != nil && token != "", so it can only be
// true once a check has completed. Streams that need a session gate on
// Store.Ready and re-evaluate through OnChange.
package auth
