package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// every connection to :memory: opens a fresh database
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "recent_queries")
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	t.Run("MissingTable", func(t *testing.T) {
		if _, err := NextSequence(db, "nope"); err == nil {
			t.Error("expected error for missing sequence table")
		}
	})
}

func TestCredentialRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadEmpty", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		cred, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cred != nil {
			t.Errorf("expected nil credential, got %v", cred)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		want := models.NewCredential("tok-1", time.Now())

		if err := repo.Save(ctx, want); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got == nil || got.Token != "tok-1" {
			t.Fatalf("expected tok-1, got %v", got)
		}
		if !got.ExpiresAt.Equal(want.ExpiresAt) {
			t.Errorf("expected expiry %v, got %v", want.ExpiresAt, got.ExpiresAt)
		}
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		if err := repo.Save(ctx, models.NewCredential("old", time.Now())); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := repo.Save(ctx, models.NewCredential("new", time.Now())); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got == nil || got.Token != "new" {
			t.Errorf("expected new token, got %v", got)
		}
	})

	t.Run("SaveEmptyToken", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		err := repo.Save(ctx, models.Credential{})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("ExpiredIsRemoved", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCredentialRepository(db)
		now := time.Now()
		if err := repo.Save(ctx, models.NewCredential("tok", now)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		repo.now = func() time.Time { return now.Add(models.CredentialTTL + time.Minute) }

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected expired credential to load as nil, got %v", got)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM credentials WHERE key = ?", models.CredentialKey).Scan(&count); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected expired row to be deleted, found %d", count)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("Clear on empty store failed: %v", err)
		}
		if err := repo.Save(ctx, models.NewCredential("tok", time.Now())); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil after Clear, got %v", got)
		}
	})

	t.Run("GuestSessionID", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		first, err := repo.GuestSessionID(ctx)
		if err != nil {
			t.Fatalf("GuestSessionID failed: %v", err)
		}
		if first == "" {
			t.Fatal("expected a generated id")
		}

		second, err := repo.GuestSessionID(ctx)
		if err != nil {
			t.Fatalf("GuestSessionID failed: %v", err)
		}
		if first != second {
			t.Errorf("expected stable id, got %q then %q", first, second)
		}

		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		third, _ := repo.GuestSessionID(ctx)
		if third != first {
			t.Error("clearing the credential should not reset the guest session id")
		}
	})
}

func TestRecentQueryRepository(t *testing.T) {
	free := true

	t.Run("Create", func(t *testing.T) {
		repo := NewRecentQueryRepository(setupTestDB(t))
		q := models.NewRecentQuery("  Go Basics ", models.FilterSet{IsFree: &free}, 4)

		if err := repo.Create(q); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if q.ID() == "" {
			t.Error("ID should be set after creation")
		}
		if q.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", q.Sequence())
		}
	})

	t.Run("CreateValidation", func(t *testing.T) {
		repo := NewRecentQueryRepository(setupTestDB(t))

		err := repo.Create(models.NewRecentQuery("   ", models.FilterSet{}, 0))
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewRecentQueryRepository(setupTestDB(t))
		q := models.NewRecentQuery("Go Basics", models.FilterSet{IsFree: &free, Types: []models.ResourceType{"video"}}, 4)
		if err := repo.Create(q); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		got, err := repo.Get(q.ID())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Query() != "Go Basics" || got.Normalized() != "go basics" {
			t.Errorf("unexpected text %q / %q", got.Query(), got.Normalized())
		}
		if got.ResultsCount() != 4 {
			t.Errorf("expected results count 4, got %d", got.ResultsCount())
		}
		if !got.Filters().Equal(q.Filters()) {
			t.Errorf("expected filters %+v, got %+v", q.Filters(), got.Filters())
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		repo := NewRecentQueryRepository(setupTestDB(t))

		if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateMovesToTop", func(t *testing.T) {
		repo := NewRecentQueryRepository(setupTestDB(t))
		a := models.NewRecentQuery("alpha", models.FilterSet{}, 1)
		b := models.NewRecentQuery("beta", models.FilterSet{}, 2)
		for _, q := range []*models.RecentQuery{a, b} {
			if err := repo.Create(q); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
		}

		a.SetResultsCount(9)
		if err := repo.Update(a); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		list, err := repo.List(nil)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 || list[0].Query() != "alpha" {
			t.Fatalf("expected alpha first, got %v", queries(list))
		}
		if list[0].ResultsCount() != 9 {
			t.Errorf("expected updated count 9, got %d", list[0].ResultsCount())
		}
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		repo := NewRecentQueryRepository(setupTestDB(t))
		q := models.NewRecentQuery("ghost", models.FilterSet{}, 0)
		q.SetID("missing")

		if err := repo.Update(q); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewRecentQueryRepository(setupTestDB(t))
		q := models.NewRecentQuery("alpha", models.FilterSet{}, 1)
		if err := repo.Create(q); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if err := repo.Delete(q.ID()); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.Get(q.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected deleted query to be hidden, got %v", err)
		}
		if err := repo.Delete(q.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected second delete to fail with ErrNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewRecentQueryRepository(setupTestDB(t))
		for _, text := range []string{"go basics", "go_routines", "python", "golang 100%"} {
			if err := repo.Create(models.NewRecentQuery(text, models.FilterSet{}, 0)); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{"All", nil, []string{"golang 100%", "python", "go_routines", "go basics"}},
			{"Limit", map[string]any{"limit": 2}, []string{"golang 100%", "python"}},
			{"Prefix", map[string]any{"prefix": "GO"}, []string{"golang 100%", "go_routines", "go basics"}},
			{"PrefixEscapesWildcards", map[string]any{"prefix": "go_"}, []string{"go_routines"}},
			{"NoMatch", map[string]any{"prefix": "rust"}, nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				list, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("List failed: %v", err)
				}
				got := queries(list)
				if len(got) != len(tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
				for i := range got {
					if got[i] != tt.want[i] {
						t.Errorf("position %d: expected %q, got %q", i, tt.want[i], got[i])
					}
				}
			})
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewRecentQueryRepository(setupTestDB(t))
		for _, text := range []string{"a", "b"} {
			if err := repo.Create(models.NewRecentQuery(text, models.FilterSet{}, 0)); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
		}

		n, err := repo.Clear()
		if err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 cleared, got %d", n)
		}
		list, _ := repo.List(nil)
		if len(list) != 0 {
			t.Errorf("expected empty list, got %v", queries(list))
		}
	})

	t.Run("Record", func(t *testing.T) {
		ctx := context.Background()
		repo := NewRecentQueryRepository(setupTestDB(t))

		first := models.SearchQuery{Text: "Go Basics", Page: 1, PageSize: 10}
		if err := repo.Record(ctx, first, &models.SearchResult{Total: 3}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := repo.Record(ctx, models.SearchQuery{Text: "python"}, &models.SearchResult{Total: 1}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		again := models.SearchQuery{Text: "go   basics", Filters: models.FilterSet{IsFree: &free}}
		if err := repo.Record(ctx, again, &models.SearchResult{Total: 7}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		list, err := repo.List(nil)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected re-recorded query to be deduplicated, got %v", queries(list))
		}
		top := list[0]
		if top.Normalized() != "go basics" || top.ResultsCount() != 7 {
			t.Errorf("expected go basics with 7 results on top, got %q (%d)", top.Normalized(), top.ResultsCount())
		}
		if top.Filters().IsFree == nil || !*top.Filters().IsFree {
			t.Error("expected filters of the latest submission")
		}
	})

	t.Run("RecordCanceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		repo := NewRecentQueryRepository(setupTestDB(t))

		if err := repo.Record(ctx, models.SearchQuery{Text: "go"}, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func queries(list []*models.RecentQuery) []string {
	out := make([]string, 0, len(list))
	for _, q := range list {
		out = append(out, q.Query())
	}
	return out
}
