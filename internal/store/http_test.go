package store

// ============================================================================
// HTTP Remote Store Test File
// Purpose: Verify request shapes, auth, retry-with-backoff behavior, and
// error classification against a local test server
// ============================================================================

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oklahomahail/nexus2-sub008/pkg/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client[types.CampaignDraft] {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient[types.CampaignDraft](ClientConfig{
		BaseURL:    srv.URL,
		Token:      "test-token",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	})
	require.NoError(t, err)
	return c
}

func TestClientUpsert(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody []byte
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	draft := types.CampaignDraft{ID: "d1", Title: "Gala"}
	require.NoError(t, c.Upsert(context.Background(), draft))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/drafts/d1", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)

	var sent types.CampaignDraft
	require.NoError(t, json.Unmarshal(gotBody, &sent))
	assert.Equal(t, "Gala", sent.Title)
}

func TestClientGet(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(types.CampaignDraft{ID: "d1", Title: "Gala"})
	}))

	got, err := c.Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "Gala", got.Title)
}

func TestClientGetNotFound(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))

	_, err := c.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "404 is permanent, not retried")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := c.Upsert(context.Background(), types.CampaignDraft{ID: "d1"})
	require.NoError(t, err, "retries recover from transient 5xx")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad draft", http.StatusUnprocessableEntity)
	}))

	err := c.Upsert(context.Background(), types.CampaignDraft{ID: "d1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientPatch(t *testing.T) {
	var gotPath string
	var gotBody []byte
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	fields := map[string]any{"status": "published"}
	require.NoError(t, c.Patch(context.Background(), "d1", fields))
	assert.Equal(t, "/drafts/d1", gotPath)
	assert.JSONEq(t, `{"status":"published"}`, string(gotBody))
}

func TestClientInsertMany(t *testing.T) {
	var gotPath string
	var gotBody []byte
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))

	items := []map[string]any{{"amount_cents": float64(2500)}}
	require.NoError(t, c.InsertMany(context.Background(), "generated_asks", items))
	assert.Equal(t, "/collections/generated_asks/bulk", gotPath)

	var payload struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Len(t, payload.Items, 1)
	assert.Equal(t, float64(2500), payload.Items[0]["amount_cents"])
}

func TestClientHonorsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Upsert(ctx, types.CampaignDraft{ID: "d1"})
	assert.Error(t, err)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient[types.CampaignDraft](ClientConfig{BaseURL: "://not-a-url"})
	assert.Error(t, err)
}
