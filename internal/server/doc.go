// Package server provides the loopback HTTP server used by federated login.
//
// # Router
//
// [BasicRouter] implements [Router] on [http.ServeMux] method patterns. [Middleware] added with
// [BasicRouter.Use] wraps every route registered after it; [Logging] and [Recover] are provided.
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the authorization code flow with PKCE. It validates the state parameter,
// exchanges the code with the PKCE verifier and sends the token through a channel.
// Only the first callback is processed.
//
// # Usage
//
// `lrx auth google` binds a [CallbackServer] on the configured loopback address, opens the consent
// page, waits for the [OAuthResult], and hands the verified Google ID token to the session manager.
package server
