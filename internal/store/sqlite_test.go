package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroadmap/roadmap/internal/store"
	"github.com/openroadmap/roadmap/tests/testutil"
)

func TestGetDatasourceMissing(t *testing.T) {
	s := testutil.NewTestStore(t)

	rec, err := s.GetDatasource(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSaveDatasourceRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)

	rec := &store.DatasourceRecord{
		RoadmapID:           "r1",
		Kind:                "external-tracker",
		ConfigJSON:          `{"projectId":"Platform"}`,
		EncryptedCredential: "ciphertext",
	}
	require.NoError(t, s.SaveDatasource(context.Background(), rec))
	assert.NotEmpty(t, rec.ID, "save assigns a row id")

	loaded, err := s.GetDatasource(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, "external-tracker", loaded.Kind)
	assert.Equal(t, `{"projectId":"Platform"}`, loaded.ConfigJSON)
	assert.True(t, loaded.HasSecret())
	assert.False(t, loaded.HasSnapshot())
}

func TestSaveDatasourceUpsertClearsSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	rec := &store.DatasourceRecord{RoadmapID: "r1", Kind: "external-tracker", ConfigJSON: "{}"}
	require.NoError(t, s.SaveDatasource(ctx, rec))
	firstID := rec.ID

	capturedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReplaceSnapshot(ctx, "r1", `{"items":[]}`, capturedAt, 120, 0))

	loaded, err := s.GetDatasource(ctx, "r1")
	require.NoError(t, err)
	require.True(t, loaded.HasSnapshot())

	loaded.ConfigJSON = `{"includeClosed":true}`
	require.NoError(t, s.SaveDatasource(ctx, loaded))

	loaded, err = s.GetDatasource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, firstID, loaded.ID, "upsert keeps the row id")
	assert.Equal(t, `{"includeClosed":true}`, loaded.ConfigJSON)
	assert.False(t, loaded.HasSnapshot(), "saving a configuration invalidates the snapshot")
}

func TestReplaceSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDatasource(ctx, &store.DatasourceRecord{
		RoadmapID: "r1", Kind: "external-tracker", ConfigJSON: "{}",
	}))

	capturedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReplaceSnapshot(ctx, "r1", `{"items":[{"id":"1"}]}`, capturedAt, 450, 1))

	loaded, err := s.GetDatasource(ctx, "r1")
	require.NoError(t, err)
	require.True(t, loaded.HasSnapshot())
	assert.Equal(t, `{"items":[{"id":"1"}]}`, loaded.SnapshotJSON)
	assert.WithinDuration(t, capturedAt, *loaded.SnapshotCapturedAt, time.Second)

	meta := loaded.Meta()
	require.NotNil(t, meta.LastSyncAt)
	assert.WithinDuration(t, capturedAt, *meta.LastSyncAt, time.Second)
	assert.Equal(t, int64(450), meta.LastSyncDurationMs)
	assert.Equal(t, 1, meta.LastSyncItemCount)
	assert.Empty(t, meta.LastSyncError)
}

func TestReplaceSnapshotUnknownRoadmap(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.ReplaceSnapshot(context.Background(), "nope", "{}", time.Now(), 0, 0)
	assert.Error(t, err)
}

func TestRecordSyncFailureKeepsSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDatasource(ctx, &store.DatasourceRecord{
		RoadmapID: "r1", Kind: "external-tracker", ConfigJSON: "{}",
	}))
	capturedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReplaceSnapshot(ctx, "r1", `{"items":[]}`, capturedAt, 80, 0))

	failedAt := capturedAt.Add(20 * time.Minute)
	require.NoError(t, s.RecordSyncFailure(ctx, "r1", failedAt, "query: status 503"))

	loaded, err := s.GetDatasource(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, loaded.HasSnapshot(), "a failed sync must not destroy the snapshot")
	assert.WithinDuration(t, capturedAt, *loaded.SnapshotCapturedAt, time.Second)
	assert.Equal(t, "query: status 503", loaded.LastSyncError)
	require.NotNil(t, loaded.LastSyncAt)
	assert.WithinDuration(t, failedAt, *loaded.LastSyncAt, time.Second)
}

func TestReplaceSnapshotClearsPreviousError(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDatasource(ctx, &store.DatasourceRecord{
		RoadmapID: "r1", Kind: "external-tracker", ConfigJSON: "{}",
	}))
	require.NoError(t, s.RecordSyncFailure(ctx, "r1", time.Now(), "boom"))
	require.NoError(t, s.ReplaceSnapshot(ctx, "r1", `{"items":[]}`, time.Now(), 10, 0))

	loaded, err := s.GetDatasource(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, loaded.LastSyncError)
}
