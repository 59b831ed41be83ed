// Package repositories implements SQLite persistence for the client's local state.
//
// Key Implementations:
//   - [CredentialRepository] : the bearer credential and guest session id, each under a fixed key.
//     It implements the session manager's credential store and plays the role of a browser cookie jar,
//     including client-side expiry.
//   - [RecentQueryRepository] : searches submitted from this machine, most recent first, with soft deletes.
//     It records every committed search result set.
//
// Server-side data (resources, search history, quotas) is never persisted here.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
