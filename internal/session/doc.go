// Package session owns the client's authentication state.
//
// A [Manager] holds exactly one [Session] and is the only writer of the persisted credential.
// It is constructed once and passed to whatever needs it; there is no package-level state.
//
// # State machine
//
//	Initializing ──Initialize──▶ Authenticated | Anonymous
//	Anonymous ──Login/Signup/OAuthLogin──▶ Authenticated
//	Authenticated ──Refresh──▶ Authenticated (credential replaced, identity unchanged)
//	Authenticated ──Logout/Expire──▶ Anonymous
//
// No transition re-enters Initializing. Authenticated holds iff both an identity and a
// credential are present.
//
// # Refresh
//
// The Manager implements the HTTP adapter's credential source and refresher. Concurrent
// refreshes are coalesced into a single /auth/refresh call; the adapter guarantees that each
// originating request triggers at most one.
package session
