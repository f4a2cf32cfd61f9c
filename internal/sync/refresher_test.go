package sync

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroadmap/roadmap/internal/engine"
	"github.com/openroadmap/roadmap/internal/model"
	"github.com/openroadmap/roadmap/internal/source"
)

type fakeProvider struct {
	mu      gosync.Mutex
	results map[string]*engine.ItemsResult
	errs    map[string]error
	calls   map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		results: make(map[string]*engine.ItemsResult),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeProvider) GetItems(ctx context.Context, roadmapID string, forceRefresh bool) (*engine.ItemsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[roadmapID]++
	if err := f.errs[roadmapID]; err != nil {
		return nil, err
	}
	return f.results[roadmapID], nil
}

func (f *fakeProvider) callCount(roadmapID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[roadmapID]
}

func waitForResult(t *testing.T, r *Refresher) Result {
	t.Helper()
	select {
	case res := <-r.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh result")
		return Result{}
	}
}

func TestRefresherInitialRefresh(t *testing.T) {
	provider := newFakeProvider()
	provider.results["r1"] = &engine.ItemsResult{
		Items: []model.RoadmapItem{{ID: "1"}, {ID: "2"}},
	}

	r := New(provider, time.Hour)
	r.Register("r1")
	r.Start()
	defer r.Stop()

	res := waitForResult(t, r)
	assert.Equal(t, "r1", res.RoadmapID)
	assert.Equal(t, 2, res.ItemCount)
	assert.NoError(t, res.Err)

	statuses := r.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, Idle, statuses[0].State)
	assert.False(t, statuses[0].LastRefresh.IsZero())
}

func TestRefresherReportsStaleFallback(t *testing.T) {
	provider := newFakeProvider()
	provider.results["r1"] = &engine.ItemsResult{
		Items:   []model.RoadmapItem{{ID: "1"}},
		Stale:   true,
		Warning: "live sync failed (503); showing data captured 2026-03-01T09:00:00Z",
	}

	r := New(provider, time.Hour)
	r.Register("r1")
	r.Start()
	defer r.Stop()

	res := waitForResult(t, r)
	assert.True(t, res.Stale)
	assert.Contains(t, res.Warning, "live sync failed")
	assert.NoError(t, res.Err)
}

func TestRefresherFlagsMissingCredential(t *testing.T) {
	provider := newFakeProvider()
	provider.errs["r1"] = source.ErrMissingCredential

	r := New(provider, time.Hour)
	r.Register("r1")
	r.Start()
	defer r.Stop()

	res := waitForResult(t, r)
	assert.True(t, res.CredentialMissing)
	assert.Error(t, res.Err)

	statuses := r.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, Failed, statuses[0].State)
}

func TestRefreshNowTriggersExtraRead(t *testing.T) {
	provider := newFakeProvider()
	provider.results["r1"] = &engine.ItemsResult{}

	r := New(provider, time.Hour)
	r.Register("r1")
	r.Start()
	defer r.Stop()

	waitForResult(t, r)
	require.Equal(t, 1, provider.callCount("r1"))

	r.RefreshNow("r1")
	waitForResult(t, r)
	assert.Equal(t, 2, provider.callCount("r1"))

	// Unknown ids are ignored rather than queued.
	r.RefreshNow("nope")
	assert.Equal(t, 2, provider.callCount("r1"))
}

func TestRefreshAllCoversEveryRoadmap(t *testing.T) {
	provider := newFakeProvider()
	provider.results["r1"] = &engine.ItemsResult{}
	provider.results["r2"] = &engine.ItemsResult{}

	r := New(provider, time.Hour)
	r.Register("r1")
	r.Register("r2")
	r.Start()
	defer r.Stop()

	waitForResult(t, r)
	waitForResult(t, r)

	r.RefreshAll()
	waitForResult(t, r)
	waitForResult(t, r)

	assert.Equal(t, 2, provider.callCount("r1"))
	assert.Equal(t, 2, provider.callCount("r2"))
}
