package azdo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroadmap/roadmap/internal/model"
	"github.com/openroadmap/roadmap/internal/source"
)

// fakeTracker is an httptest server speaking just enough of the tracker API
// for connector tests.
type fakeTracker struct {
	t *testing.T

	ids        []int
	batchCalls [][]int
	batchFail  bool

	// fieldsFor builds the Fields map for a record id.
	fieldsFor func(id int) map[string]any

	server *httptest.Server
}

func newFakeTracker(t *testing.T, ids []int) *fakeTracker {
	f := &fakeTracker{
		t:   t,
		ids: ids,
		fieldsFor: func(id int) map[string]any {
			return map[string]any{
				"System.Title":       fmt.Sprintf("Item %d title", id),
				"System.State":       "Active",
				"System.CreatedDate": "2024-01-01T00:00:00Z",
			}
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/Platform/_apis/wit/wiql", func(w http.ResponseWriter, r *http.Request) {
		f.checkAuth(r)
		refs := make([]WorkItemRef, 0, len(f.ids))
		for _, id := range f.ids {
			refs = append(refs, WorkItemRef{ID: id})
		}
		json.NewEncoder(w).Encode(WiqlResponse{WorkItems: refs})
	})
	mux.HandleFunc("/Platform/_apis/wit/workitemsbatch", func(w http.ResponseWriter, r *http.Request) {
		f.checkAuth(r)
		if f.batchFail {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"batch exploded"}`)
			return
		}

		var req batchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.batchCalls = append(f.batchCalls, req.IDs)

		// Return records in reverse request order; the connector must
		// restore the original id order itself.
		resp := BatchResponse{}
		for i := len(req.IDs) - 1; i >= 0; i-- {
			id := req.IDs[i]
			resp.Value = append(resp.Value, WorkItem{ID: id, Fields: f.fieldsFor(id)})
		}
		json.NewEncoder(w).Encode(resp)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTracker) checkAuth(r *http.Request) {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":test-token"))
	assert.Equal(f.t, want, r.Header.Get("Authorization"))
	assert.Equal(f.t, apiVersion, r.URL.Query().Get("api-version"))
}

func (f *fakeTracker) config() model.DatasourceConfig {
	cfg := model.NormalizeDatasourceConfig(nil)
	cfg.EndpointURL = f.server.URL
	cfg.ProjectID = "Platform"
	return cfg
}

func (f *fakeTracker) connector() *Connector {
	return New(f.server.URL, "test-token", 5*time.Second)
}

func seq(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

func TestSyncRefusesIncompleteConfig(t *testing.T) {
	conn := New("", "token", time.Second)
	cfg := model.NormalizeDatasourceConfig(nil)

	_, err := conn.Sync(context.Background(), cfg)
	assert.ErrorIs(t, err, source.ErrConfigIncomplete)
}

func TestSyncTruncationBoundary(t *testing.T) {
	tests := []struct {
		name          string
		idCount       int
		maxItems      int
		wantTruncated bool
		wantItems     int
	}{
		{"exactly max", 5, 5, true, 5},
		{"one under max", 4, 5, false, 4},
		{"over max", 8, 5, true, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeTracker(t, seq(tt.idCount))
			cfg := f.config()
			cfg.MaxItems = tt.maxItems

			result, err := f.connector().Sync(context.Background(), cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTruncated, result.Truncated)
			assert.Len(t, result.Items, tt.wantItems)
		})
	}
}

func TestSyncChunksBatchReads(t *testing.T) {
	f := newFakeTracker(t, seq(450))
	cfg := f.config()
	cfg.MaxItems = 2000

	result, err := f.connector().Sync(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, f.batchCalls, 3)
	assert.Len(t, f.batchCalls[0], 200)
	assert.Len(t, f.batchCalls[1], 200)
	assert.Len(t, f.batchCalls[2], 50)

	// Items come back in original id order despite the server reversing
	// each chunk.
	require.Len(t, result.Items, 450)
	for i, item := range result.Items {
		assert.Equal(t, strconv.Itoa(i+1), item.ID)
	}
}

func TestSyncZeroMatchesSkipsBatch(t *testing.T) {
	f := newFakeTracker(t, nil)

	result, err := f.connector().Sync(context.Background(), f.config())
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.False(t, result.Truncated)
	assert.Empty(t, f.batchCalls)
}

func TestSyncBatchFailureAbortsWhole(t *testing.T) {
	f := newFakeTracker(t, seq(10))
	f.batchFail = true

	_, err := f.connector().Sync(context.Background(), f.config())
	require.Error(t, err)
	require.True(t, source.IsUpstreamError(err))

	var upstream *source.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	assert.Contains(t, upstream.Body, "batch exploded")
}

func TestSyncIncludesClosedRecordsReturnedByQuery(t *testing.T) {
	// State filtering is the query's responsibility: records the tracker
	// returns are mapped regardless of their state.
	f := newFakeTracker(t, []int{101, 102})
	f.fieldsFor = func(id int) map[string]any {
		state := "Active"
		if id == 102 {
			state = "Closed"
		}
		return map[string]any{
			"System.Title":       fmt.Sprintf("Item %d title", id),
			"System.State":       state,
			"System.CreatedDate": "2024-01-01T00:00:00Z",
		}
	}

	result, err := f.connector().Sync(context.Background(), f.config())
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Closed", result.Items[1].Disposition)
}

func TestValidateReportsMissingFields(t *testing.T) {
	f := newFakeTracker(t, seq(25))
	cfg := f.config()
	cfg.FieldMap = map[string]string{model.FieldSize: "Custom.NoSuchField"}

	warnings, err := f.connector().Validate(context.Background(), cfg)
	require.NoError(t, err)

	// Sample is capped at 10 records in one batch call.
	require.Len(t, f.batchCalls, 1)
	assert.Len(t, f.batchCalls[0], 10)

	assert.Contains(t, warnings, `field "Custom.NoSuchField" (mapped to size) was not present on any sampled record`)

	// The fake records never carry a sponsor value.
	assert.Contains(t, warnings, "no values observed for sponsor across 10 sampled records")
}

func TestValidateEmptyQueryResult(t *testing.T) {
	f := newFakeTracker(t, nil)

	warnings, err := f.connector().Validate(context.Background(), f.config())
	require.NoError(t, err)
	assert.Equal(t, []string{"query matched no records"}, warnings)
}
