package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/resilience"
	"github.com/planvector/drawing-cli/internal/sanitize"
)

// fastRetry keeps test retries in the microsecond range.
func fastRetry() resilience.Policy {
	return resilience.Policy{
		Attempts:   3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestFetchCategory_WrappedResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/materials", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"materials": [{"id": "mat-010", "name": "Sand", "description": "Sharp sand", "unit": "tonne"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithAPIKey("test-key"), WithRetryPolicy(fastRetry()))
	items, err := client.FetchCategory(context.Background(), model.CategoryMaterials)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "mat-010", items[0].ID)
	assert.Equal(t, "Sand", items[0].Name)
	assert.Equal(t, "tonne", items[0].Extra["unit"])
}

func TestFetchCategory_BareArrayResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "room-009", "name": "Utility room"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRetryPolicy(fastRetry()))
	items, err := client.FetchCategory(context.Background(), model.CategoryRooms)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Utility room", items[0].Name)
}

func TestFetchCategory_HTMLBodyRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<!DOCTYPE html><html><body><h1>Maintenance</h1></body></html>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRetryPolicy(fastRetry()))
	_, err := client.FetchCategory(context.Background(), model.CategoryTasks)

	require.Error(t, err)
	assert.ErrorIs(t, err, sanitize.ErrHTMLBody)
}

func TestFetchCategory_RepairableJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{'materials': [{'id': 'mat-011', 'name': 'Lime mortar',},]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRetryPolicy(fastRetry()))
	items, err := client.FetchCategory(context.Background(), model.CategoryMaterials)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Lime mortar", items[0].Name)
}

func TestFetchCategory_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"stages": [{"id": "stage-010", "name": "Roofing"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRetryPolicy(fastRetry()))
	items, err := client.FetchCategory(context.Background(), model.CategoryStages)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchCategory_NonTransientStatusFailsFast(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRetryPolicy(fastRetry()))
	_, err := client.FetchCategory(context.Background(), model.CategoryRooms)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchCategory_BreakerOpens(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	breakers := resilience.NewBreakerSet(resilience.BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour})
	client := NewClient(srv.URL, WithRetryPolicy(fastRetry()), WithBreakers(breakers))

	_, err := client.FetchCategory(context.Background(), model.CategoryTasks)
	require.Error(t, err)
	_, err = client.FetchCategory(context.Background(), model.CategoryTasks)
	require.Error(t, err)

	// Third call is rejected before reaching the server.
	_, err = client.FetchCategory(context.Background(), model.CategoryTasks)
	assert.ErrorIs(t, err, resilience.ErrBreakerOpen)
	assert.Equal(t, int32(2), hits.Load())

	// The other categories keep their own breakers.
	_, err = client.FetchCategory(context.Background(), model.CategoryRooms)
	require.Error(t, err)
	assert.NotErrorIs(t, err, resilience.ErrBreakerOpen)
}

func TestFetchCategory_UnknownCategory(t *testing.T) {
	t.Parallel()

	client := NewClient("http://127.0.0.1:0", WithRetryPolicy(fastRetry()))
	_, err := client.FetchCategory(context.Background(), model.Category("plumbing"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}
