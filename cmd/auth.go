package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/server"
	"github.com/desertthunder/lrx/internal/services"
	"github.com/desertthunder/lrx/internal/session"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// EnvPassword supplies the password when --password is omitted.
const EnvPassword = "LRX_PASSWORD"

// GoogleLoginTimeout bounds the wait for the browser redirect.
const GoogleLoginTimeout = 2 * time.Minute

func password(cmd *cli.Command) string {
	if p := cmd.String("password"); p != "" {
		return p
	}
	return os.Getenv(EnvPassword)
}

// authFailure turns a [session.AuthError] into the message shown to the user.
func authFailure(err error) error {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return fmt.Errorf("%s: %w", authErr.Message, err)
	}
	return err
}

// AuthLogin signs in with email and password and persists the credential.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.restore(ctx)

	email := cmd.String("email")
	r.logger.Info("logging in", "email", email)

	user, err := r.session.Login(ctx, email, password(cmd))
	if err != nil {
		return authFailure(err)
	}
	return r.writePlain("✓ Logged in as %s\n", user.DisplayName())
}

// AuthSignup registers a new account and signs in.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	r.restore(ctx)

	email := cmd.String("email")
	r.logger.Info("signing up", "email", email)

	user, err := r.session.Signup(ctx, email, password(cmd), cmd.String("name"))
	if err != nil {
		return authFailure(err)
	}
	return r.writePlain("✓ Account created. Logged in as %s\n", user.DisplayName())
}

// AuthGoogle runs the Google authorization code flow on a loopback server and exchanges the
// verified ID token for an API credential.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	r.restore(ctx)

	provider, err := services.NewGoogleProvider(ctx, r.config.Auth)
	if err != nil {
		return err
	}

	state := shared.GenerateID()
	verifier := oauth2.GenerateVerifier()
	handler := server.NewOAuthHandler(provider.Config(), state, verifier)

	router := server.NewBasicRouter(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(handler)

	srv, err := server.Listen(r.config.Server.Addr(), router, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	defer srv.Close()

	authURL := provider.AuthCodeURL(state, verifier)
	r.writePlain("Opening browser for Google login...\n")
	r.writePlain("If the browser does not open, visit:\n%s\n", authURL)
	if !cmd.Bool("no-browser") {
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, GoogleLoginTimeout)
	defer cancel()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-srv.Errors():
		return fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("%w: no response from Google", shared.ErrTimeout)
	}
	if err := result.Error(); err != nil {
		return fmt.Errorf("google login failed: %w", err)
	}

	idToken, err := services.IDTokenFrom(result.Token)
	if err != nil {
		return err
	}
	claims, err := provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		return err
	}
	r.logger.Info("google account verified", "email", claims.Email)

	user, err := r.session.OAuthLogin(ctx, idToken)
	if err != nil {
		return authFailure(err)
	}
	return r.writePlain("✓ Logged in as %s\n", user.DisplayName())
}

// AuthLogout discards the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if !r.restore(ctx).IsAuthenticated() {
		return r.writePlain("Not logged in\n")
	}
	r.session.Logout(ctx)
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports the session state and the remaining search quota.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	s := r.restore(ctx)

	quota, err := r.search.RateLimitStatus(ctx, r.guestSessionID())
	if err != nil {
		r.logger.Debug("failed to fetch rate limit status", "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(statusOutput(s, quota), true)
	}

	r.writePlain("API: %s\n", r.api.BaseURL())
	if s.IsAuthenticated() {
		r.writePlain("Authentication: ✓ %s\n", s.User.DisplayName())
		r.writePlain("Credential expires: %s\n", s.Credential.ExpiresAt.Format(time.RFC1123))
	} else {
		r.writePlain("Authentication: ✗ Not authenticated (guest)\n")
	}
	return r.writePlain("Remaining searches: %d\n", quota.RemainingSearches)
}

type statusJSON struct {
	Authenticated     bool             `json:"authenticated"`
	User              *models.Identity `json:"user,omitempty"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`
	RemainingSearches int              `json:"remaining_searches"`
}

func statusOutput(s session.Session, quota models.RateLimitStatus) statusJSON {
	out := statusJSON{Authenticated: s.IsAuthenticated(), RemainingSearches: quota.RemainingSearches}
	if out.Authenticated {
		out.User = s.User
		exp := s.Credential.ExpiresAt
		out.ExpiresAt = &exp
	}
	return out
}

// AuthWhoami prints the signed-in identity.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	s := r.restore(ctx)
	if !s.IsAuthenticated() {
		return fmt.Errorf("%w: run 'lrx auth login'", shared.ErrNotAuthenticated)
	}

	if cmd.Bool("json") {
		return r.writeJSON(s.User, true)
	}
	r.writePlain("%s\n", s.User.DisplayName())
	return r.writePlain("Email: %s\nID: %s\n", s.User.Email, s.User.ID)
}
