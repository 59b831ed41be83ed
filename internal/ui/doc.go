// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI renders the state owned by [session.Manager] and [search.Synchronizer]:
//  1. [InitView] : Restoring a stored credential
//  2. [SearchView] : Query input, paginated results and the signup prompt
//  3. [FilterView] : Toggle resource type, pricing and difficulty filters
//  4. [LoginView] : Email login and signup form
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Session changes, navigation requests and notices flow in through channels so the manager and the HTTP client
// never touch the program directly.
package ui
