package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oklahomahail/nexus2-sub008/pkg/types"
)

// TestAutosaveBurstCoalesces drives a rapid edit burst through the full stack
// and verifies the debounce window collapses it into a single remote write.
func TestAutosaveBurstCoalesces(t *testing.T) {
	backend := newDraftServer()
	server := httptest.NewServer(backend)
	defer server.Close()

	saver := newTestSaver(t, server.URL)
	defer saver.Close()

	draft := types.CampaignDraft{
		ID:       types.NewDraftID(),
		ClientID: "client-1",
		Status:   types.StatusDraft,
	}
	for i := 0; i < 20; i++ {
		draft.Title = fmt.Sprintf("Gala rev %d", i)
		saver.Autosave(draft)
	}

	// One debounce window plus slack for the remote round trip.
	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return strings.Contains(string(backend.drafts[draft.ID]), "Gala rev 19")
	}, 2*time.Second, 20*time.Millisecond, "burst should settle into a remote write")

	loaded, err := saver.Load(context.Background(), draft.ID)
	require.NoError(t, err)
	require.Equal(t, "Gala rev 19", loaded.Title, "the last edit wins")
}

func BenchmarkAutosaveBurst(b *testing.B) {
	backend := newDraftServer()
	server := httptest.NewServer(backend)
	defer server.Close()

	saver := newTestSaver(b, server.URL)
	defer saver.Close()

	draft := types.CampaignDraft{
		ID:       types.NewDraftID(),
		ClientID: "client-1",
		Status:   types.StatusDraft,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		draft.Title = fmt.Sprintf("rev %d", i)
		saver.Autosave(draft)
	}
	b.StopTimer()
}
