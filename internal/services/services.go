// package services implements the HTTP client adapter and the typed endpoint clients
// for the learning-resource API
package services

// CredentialFunc adapts a function to [CredentialSource].
type CredentialFunc func() string

func (f CredentialFunc) Token() string { return f() }

// StaticCredential is a fixed bearer token, used by `lrx api` when a token is passed explicitly.
type StaticCredential string

func (s StaticCredential) Token() string { return string(s) }

var (
	_ CredentialSource = CredentialFunc(nil)
	_ CredentialSource = StaticCredential("")
)
