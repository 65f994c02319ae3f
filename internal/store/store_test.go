package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	db := openTestStore(t).DB()

	for pragma, want := range map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"synchronous":  "1",
		"busy_timeout": "5000",
	} {
		var got string
		require.NoError(t, db.QueryRow("PRAGMA "+pragma).Scan(&got), pragma)
		assert.Equal(t, want, got, pragma)
	}
}

func TestMigrate(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{"kv", "drafts", "llm_calls"} {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}
	var version int
	require.NoError(t, s.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	require.NoError(t, migrate(context.Background(), s.DB()), "migrating twice is a no-op")
}

func TestOpenRefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion+1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	assert.ErrorContains(t, err, "newer than this build")
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.KV().Set(ctx, "auth.token", "tok"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.KV().Get(ctx, "auth.token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)
}

func TestKV(t *testing.T) {
	s := openTestStore(t)
	kv := s.KV()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", "v1"))
	require.NoError(t, kv.Set(ctx, "k", "v2"))

	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, kv.Delete(ctx, "k"))
	require.NoError(t, kv.Delete(ctx, "k"))

	_, ok, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDraftSaveGetList(t *testing.T) {
	s := openTestStore(t)
	repo := s.DraftRepo()
	ctx := context.Background()

	d, err := repo.Get(ctx, "scenario:s1")
	require.NoError(t, err)
	assert.Nil(t, d)

	base := time.Now().Truncate(time.Millisecond)
	require.NoError(t, repo.Save(ctx, Draft{
		Key: "scenario:s1", Title: "first", ScenarioID: "s1",
		Payload: []byte(`{"nodes":[]}`), SavedAt: base,
	}))
	require.NoError(t, repo.Save(ctx, Draft{
		Key: "diagram:d1", Title: "second", DiagramID: "d1",
		Payload: []byte(`{}`), SavedAt: base.Add(time.Minute),
	}))
	require.NoError(t, repo.Save(ctx, Draft{
		Key: "scenario:s1", Title: "first v2", ScenarioID: "s1",
		Payload: []byte(`{"nodes":[1]}`), SavedAt: base.Add(2 * time.Minute),
	}))

	d, err = repo.Get(ctx, "scenario:s1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "first v2", d.Title)
	assert.Equal(t, `{"nodes":[1]}`, string(d.Payload))
	assert.True(t, d.SavedAt.Equal(base.Add(2*time.Minute)))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "scenario:s1", all[0].Key)
	assert.Equal(t, "diagram:d1", all[1].Key)

	require.NoError(t, repo.Delete(ctx, "scenario:s1"))
	d, err = repo.Get(ctx, "scenario:s1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDraftRequiresKey(t *testing.T) {
	s := openTestStore(t)
	err := s.DraftRepo().Save(context.Background(), Draft{Payload: []byte("{}")})
	assert.Error(t, err)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "mock", Model: "m1", Purpose: "coach", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true},
		{Provider: "mock", Model: "m1", Purpose: "coach", InputTokens: 20, OutputTokens: 5, LatencyMs: 300, Success: true},
		{Provider: "mock", Model: "m2", Purpose: "hint", InputTokens: 1, OutputTokens: 1, Success: false, ErrorMessage: "boom"},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	got, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "hint", got[0].Purpose, "newest first")
	assert.Greater(t, got[0].ID, got[1].ID)

	limited, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	older, err := repo.QueryLLMEvents(ctx, QueryOpts{BeforeID: got[1].ID})
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, got[2].ID, older[0].ID)

	coach, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "coach"})
	require.NoError(t, err)
	assert.Len(t, coach, 2)

	future, err := repo.QueryLLMEvents(ctx, QueryOpts{Since: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)

	one, err := repo.GetLLMEvent(ctx, got[0].ID)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.False(t, one.Success)
	assert.Equal(t, "boom", one.ErrorMessage)

	none, err := repo.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, none)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, LLMUsageStats{Purpose: "coach", Calls: 2, InputTokens: 30, OutputTokens: 10, AvgLatencyMs: 200}, byPurpose[0])

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "m1", byModel[0].Model)
	assert.Equal(t, 2, byModel[0].Calls)
}
