package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/lrx/internal/shared"
	tu "github.com/desertthunder/lrx/internal/testing"
)

const userJSON = `{"id": 1, "email": "ada@example.com", "name": "Ada", "is_verified": true, "created_at": "2024-01-01T00:00:00"}`

func TestAuthService(t *testing.T) {
	t.Run("Login", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if h := r.Header.Get("Authorization"); h != "" {
					t.Errorf("expected anonymous request, got Authorization %s", h)
				}

				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				if body["email"] != "ada@example.com" || body["password"] != "pw" {
					t.Errorf("unexpected body %v", body)
				}

				w.Write([]byte(`{"user": ` + userJSON + `, "access_token": "tok"}`))
			}))
			defer server.Close()

			api := NewAPIService(server.URL, nil)
			api.Authorize(StaticCredential("old"), nil)
			resp, err := NewAuthService(api).Login(context.Background(), "ada@example.com", "pw")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.AccessToken != "tok" || resp.User.ID != "1" || resp.User.Name != "Ada" {
				t.Errorf("unexpected response %+v", resp)
			}
		})

		t.Run("Rejected Credentials Do Not Refresh", func(t *testing.T) {
			rt := tu.NewSequenceRoundTripper(tu.Respond(401, `{"error":"Invalid email or password"}`))
			refresher := &fakeRefresher{token: "x"}
			api := NewAPIService("http://example.com", &http.Client{Transport: rt})
			api.Authorize(nil, refresher)

			_, err := NewAuthService(api).Login(context.Background(), "ada@example.com", "bad")

			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Message != "Invalid email or password" {
				t.Errorf("expected server message, got %v", err)
			}
			if refresher.calls != 0 {
				t.Errorf("expected no refresh, got %d", refresher.calls)
			}
		})

		t.Run("Missing Token In Response", func(t *testing.T) {
			rt := tu.NewSequenceRoundTripper(tu.Respond(200, `{"user": `+userJSON+`}`))
			api := NewAPIService("http://example.com", &http.Client{Transport: rt})

			_, err := NewAuthService(api).Login(context.Background(), "ada@example.com", "pw")
			if !errors.Is(err, shared.ErrDecodeResponse) {
				t.Errorf("expected ErrDecodeResponse, got %v", err)
			}
		})
	})

	t.Run("Signup Sends Optional Name", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/signup" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"email":"ada@example.com","password":"pw"}` {
				t.Errorf("unexpected body %s", body)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"user": ` + userJSON + `, "access_token": "tok"}`))
		}))
		defer server.Close()

		resp, err := NewAuthService(NewAPIService(server.URL, nil)).Signup(context.Background(), "ada@example.com", "pw", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.AccessToken != "tok" {
			t.Errorf("expected tok, got %s", resp.AccessToken)
		}
	})

	t.Run("GoogleLogin", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if r.URL.Path != "/auth/google" || body["token"] != "google-id-token" {
				t.Errorf("unexpected request %s %v", r.URL.Path, body)
			}
			w.Write([]byte(`{"user": ` + userJSON + `, "access_token": "tok"}`))
		}))
		defer server.Close()

		if _, err := NewAuthService(NewAPIService(server.URL, nil)).GoogleLogin(context.Background(), "google-id-token"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("CurrentUser", func(t *testing.T) {
		tc := []struct {
			name string
			body string
		}{
			{name: "Bare Identity", body: userJSON},
			{name: "Wrapped Identity", body: `{"user": ` + userJSON + `}`},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if h := r.Header.Get("Authorization"); h != "Bearer tok" {
						t.Errorf("expected Bearer tok, got %s", h)
					}
					w.Write([]byte(tt.body))
				}))
				defer server.Close()

				user, err := NewAuthService(NewAPIService(server.URL, nil)).CurrentUser(context.Background(), "tok")
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if user.Email != "ada@example.com" {
					t.Errorf("unexpected user %+v", user)
				}
			})
		}

		t.Run("Without Token", func(t *testing.T) {
			_, err := NewAuthService(NewAPIService("http://example.com", nil)).CurrentUser(context.Background(), "")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Empty Body", func(t *testing.T) {
			rt := tu.NewSequenceRoundTripper(tu.Respond(200, `{}`))
			_, err := NewAuthService(NewAPIService("http://example.com", &http.Client{Transport: rt})).CurrentUser(context.Background(), "tok")
			if !errors.Is(err, shared.ErrDecodeResponse) {
				t.Errorf("expected ErrDecodeResponse, got %v", err)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/auth/refresh" || r.Header.Get("Authorization") != "Bearer old" {
					t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Authorization"))
				}
				w.Write([]byte(`{"access_token":"new"}`))
			}))
			defer server.Close()

			tok, err := NewAuthService(NewAPIService(server.URL, nil)).Refresh(context.Background(), "old")
			if err != nil || tok != "new" {
				t.Errorf("Refresh() = %q, %v", tok, err)
			}
		})

		t.Run("401 Does Not Recurse", func(t *testing.T) {
			rt := tu.NewSequenceRoundTripper(tu.Respond(401, `{"error":"Token has expired"}`))
			refresher := &fakeRefresher{token: "x"}
			api := NewAPIService("http://example.com", &http.Client{Transport: rt})
			api.Authorize(nil, refresher)

			_, err := NewAuthService(api).Refresh(context.Background(), "old")
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
			if rt.Count() != 1 || refresher.calls != 0 {
				t.Errorf("expected 1 request and no nested refresh, got %d/%d", rt.Count(), refresher.calls)
			}
		})
	})

	t.Run("Logout", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Respond(200, `{"message":"Successfully logged out"}`))
		auth := NewAuthService(NewAPIService("http://example.com", &http.Client{Transport: rt}))

		if err := auth.Logout(context.Background(), ""); err != nil {
			t.Errorf("expected no error without token, got %v", err)
		}
		if rt.Count() != 0 {
			t.Errorf("expected no request without token, got %d", rt.Count())
		}
		if err := auth.Logout(context.Background(), "tok"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if rt.Count() != 1 {
			t.Errorf("expected 1 request, got %d", rt.Count())
		}
	})
}
