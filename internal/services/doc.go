// Package services talks to the learning-resource REST API.
//
// # HTTP Client Adapter
//
// [APIService] is the single place requests are built and sent. It attaches the bearer
// credential from a [CredentialSource] at send time and classifies every failure as an
// [*APIError] whose Kind maps onto a sentinel from the shared package:
//   - [KindNetwork] : [shared.ErrNetworkFailure], transport-level failure
//   - [KindUnauthorized] : [shared.ErrNotAuthenticated], 401 after the refresh path is exhausted
//   - [KindSessionExpired] : [shared.ErrSessionExpired], the refresh itself failed
//   - [KindRateLimited] : [shared.ErrRateLimited], HTTP 429
//   - [KindServer] : [shared.ErrServerError], HTTP 5xx
//   - [KindRejected] : [shared.ErrRequestRejected], any other 4xx
//   - [KindDecode] : [shared.ErrDecodeResponse], malformed body
//
// # Refresh
//
// Each [Request] carries its own Attempt counter. A 401 on an originating request calls the
// configured [Refresher] once and re-issues the request with Attempt 1; a 401 on the retry is
// returned as is. Requests to the credential endpoints set NoRefresh so a failing refresh can
// never recurse.
//
// # Notices
//
// HTTP 429 and 5xx responses additionally emit a [shared.Notice] through the configured notifier.
// The notice is independent of the returned error, which the caller still handles.
//
// # Endpoint Clients
//
//   - [AuthService] : /auth/login, /auth/signup, /auth/google, /auth/me, /auth/refresh, /auth/logout
//   - [SearchService] : /search, /search/history, /search/favorites, /search/rate-limit/status, /search/suggestions
//   - [GoogleProvider] : authorization code flow with PKCE and ID token verification for Google sign-in
package services
