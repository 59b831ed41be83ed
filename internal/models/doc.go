// Package models defines the domain types shared by the lrx client.
//
// The package contains two categories of types:
//
// 1. Wire types: values exchanged with the learning-resource API
//   - [Identity] : the authenticated user's profile as known to the client
//   - [Resource] : an immutable, server-ranked learning resource
//   - [FilterSet] : independently optional search constraints
//   - [SearchRequest] / [SearchResult] : the paged search contract
//   - [SearchHistoryEntry] / [RateLimitStatus] : profile and quota views
//
// 2. Local entities: client-side state persisted in SQLite
//   - [Credential] : the bearer token and its expiry
//   - [RecentQuery] : a locally recorded search, implementing [Model]
//
// A nil slice or nil pointer inside a [FilterSet] means "no constraint", never "match nothing".
package models
