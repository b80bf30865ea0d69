package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleRun(id, url string, status model.RunStatus, created time.Time) *model.Run {
	return &model.Run{
		ID:          id,
		URL:         url,
		Variant:     "validated",
		Status:      status,
		CompanyName: "Acme CRM",
		Industry:    "software",
		Competitors: []model.Competitor{
			{Domain: "hubspot.com", Name: "HubSpot"},
			{Domain: "pipedrive.com", Name: "Pipedrive"},
		},
		Usage:     model.Usage{InputTokens: 1200, OutputTokens: 300, AICalls: 6, SearchQueries: 5},
		Cost:      0.0147,
		Duration:  4200 * time.Millisecond,
		CreatedAt: created,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("SaveAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := sampleRun("run-1", "https://acme.com", model.RunStatusComplete, base)
		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "https://acme.com", got.URL)
		assert.Equal(t, "validated", got.Variant)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		assert.Equal(t, "Acme CRM", got.CompanyName)
		assert.Equal(t, run.Competitors, got.Competitors)
		assert.Equal(t, run.Usage, got.Usage)
		assert.InDelta(t, 0.0147, got.Cost, 1e-9)
		assert.Equal(t, 4200*time.Millisecond, got.Duration)
		assert.True(t, base.Equal(got.CreatedAt), "created_at %v", got.CreatedAt)
	})

	t.Run("SaveRunOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := sampleRun("run-1", "https://acme.com", model.RunStatusFailed, base)
		run.Error = "boom"
		require.NoError(t, s.SaveRun(ctx, run))

		run.Status = model.RunStatusComplete
		run.Error = ""
		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		assert.Empty(t, got.Error)
	})

	t.Run("SaveRunWithoutCompetitors", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := &model.Run{ID: "run-2", URL: "not a url", Variant: "basic", Status: model.RunStatusInvalidURL, Error: "invalid URL provided"}
		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, "run-2")
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusInvalidURL, got.Status)
		assert.Empty(t, got.Competitors)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("SaveRunMissingID", func(t *testing.T) {
		s := newStore(t)
		err := s.SaveRun(context.Background(), &model.Run{URL: "https://acme.com"})
		assert.Error(t, err)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "nope")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRunNotFound))
	})

	t.Run("ListRunsNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveRun(ctx, sampleRun("a", "https://acme.com", model.RunStatusComplete, base)))
		require.NoError(t, s.SaveRun(ctx, sampleRun("b", "https://beta.io", model.RunStatusFetchError, base.Add(time.Minute))))
		require.NoError(t, s.SaveRun(ctx, sampleRun("c", "https://acme.com", model.RunStatusComplete, base.Add(2*time.Minute))))

		runs, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "c", runs[0].ID)
		assert.Equal(t, "b", runs[1].ID)
		assert.Equal(t, "a", runs[2].ID)
	})

	t.Run("ListRunsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveRun(ctx, sampleRun("a", "https://acme.com", model.RunStatusComplete, base)))
		require.NoError(t, s.SaveRun(ctx, sampleRun("b", "https://beta.io", model.RunStatusFetchError, base.Add(time.Minute))))
		require.NoError(t, s.SaveRun(ctx, sampleRun("c", "https://acme.com", model.RunStatusComplete, base.Add(2*time.Minute))))

		byStatus, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFetchError})
		require.NoError(t, err)
		require.Len(t, byStatus, 1)
		assert.Equal(t, "b", byStatus[0].ID)

		byURL, err := s.ListRuns(ctx, RunFilter{URL: "https://acme.com"})
		require.NoError(t, err)
		assert.Len(t, byURL, 2)

		page, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "b", page[0].ID)
	})

	t.Run("ListRunsEmpty", func(t *testing.T) {
		s := newStore(t)
		runs, err := s.ListRuns(context.Background(), RunFilter{})
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongo", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
}

func TestRunFilter_Limit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, RunFilter{}.limit())
	assert.Equal(t, DefaultListLimit, RunFilter{Limit: -3}.limit())
	assert.Equal(t, 5, RunFilter{Limit: 5}.limit())
}
