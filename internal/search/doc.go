// Package search keeps the query text, filters, paging and results of the search surface consistent.
//
// A [Synchronizer] tags each submitted search with a sequence number and only commits the
// response of the most recent one; late responses of superseded searches are reported as
// [OutcomeStale] and discarded. Filters change locally and never issue a request on their own.
//
// The shareable part of the state, the query text, lives in a [Location] under the "q" parameter.
// Filters are deliberately not reflected there.
package search
