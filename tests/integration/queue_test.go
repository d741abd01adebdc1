//go:build integration

package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperbox/whisperbox/internal/domain"
	"github.com/whisperbox/whisperbox/internal/notifications"
	notificationspostgres "github.com/whisperbox/whisperbox/internal/notifications/postgres"
	"github.com/whisperbox/whisperbox/internal/testutil"
)

func enqueueRow(t *testing.T, repo *notificationspostgres.Repository, createdAt time.Time) *notifications.QueueItem {
	t.Helper()
	item := &notifications.QueueItem{
		ID:              uuid.NewString(),
		RecipientUserID: uuid.NewString(),
		Channel:         domain.ChannelTypeTelegram,
		Payload: notifications.Payload{
			Destination: "chat-1",
			Preview:     "hello",
		},
		Status:    notifications.QueueStatusPending,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Enqueue(context.Background(), item))

	if !createdAt.IsZero() {
		// Enqueue stamps created_at server-side; backdate for retention tests.
		_, err := testDB.Exec(context.Background(),
			`UPDATE notification_queue SET created_at = $1 WHERE id = $2`, createdAt, item.ID)
		require.NoError(t, err)
	}
	return item
}

func TestQueue_TriggerEndpointsRequireCronSecret(t *testing.T) {
	cleanupTables(t)

	for _, path := range []string{"/api/v1/queue/process", "/api/v1/queue/cleanup"} {
		resp, err := newTestClient().POST(path, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		wrong := newTestClient()
		wrong.CronSecret = "not-the-secret"
		resp, err = wrong.POST(path, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestQueue_ProcessMarksItemsTerminal(t *testing.T) {
	cleanupTables(t)
	repo := notificationspostgres.NewRepository(testDB)

	item := enqueueRow(t, repo, time.Time{})

	resp, err := newCronClient().POST("/api/v1/queue/process", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data map[string]int64 `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, int64(1), body.Data["processed"])

	// No telegram sender is configured in the test app, so delivery fails
	// and the item lands in failed. Either way it is terminal.
	stored, err := repo.GetItemByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, notifications.QueueStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.LastError)
	assert.Equal(t, 1, stored.Attempts)

	// Failed items are never re-claimed.
	resp, err = newCronClient().POST("/api/v1/queue/process", nil)
	require.NoError(t, err)
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, int64(0), body.Data["processed"])
}

func TestQueue_ConcurrentClaimsAreDisjoint(t *testing.T) {
	cleanupTables(t)
	repo := notificationspostgres.NewRepository(testDB)

	for i := 0; i < 10; i++ {
		enqueueRow(t, repo, time.Time{})
	}

	var wg sync.WaitGroup
	batches := make([][]*notifications.QueueItem, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items, err := repo.ClaimBatch(context.Background(), 3)
			assert.NoError(t, err)
			batches[i] = items
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	total := 0
	for _, batch := range batches {
		for _, item := range batch {
			assert.False(t, seen[item.ID], "item %s claimed twice", item.ID)
			seen[item.ID] = true
			total++
		}
	}
	assert.Equal(t, 10, total)
}

func TestQueue_ClaimBatchOldestFirst(t *testing.T) {
	cleanupTables(t)
	repo := notificationspostgres.NewRepository(testDB)

	newest := enqueueRow(t, repo, time.Now())
	oldest := enqueueRow(t, repo, time.Now().Add(-2*time.Hour))
	middle := enqueueRow(t, repo, time.Now().Add(-time.Hour))

	items, err := repo.ClaimBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, oldest.ID, items[0].ID)
	assert.Equal(t, middle.ID, items[1].ID)

	stored, err := repo.GetItemByID(context.Background(), newest.ID)
	require.NoError(t, err)
	assert.Equal(t, notifications.QueueStatusPending, stored.Status)
}

func TestQueue_CleanupDeletesOnlyOldTerminalItems(t *testing.T) {
	cleanupTables(t)
	repo := notificationspostgres.NewRepository(testDB)

	ctx := context.Background()
	old := time.Now().AddDate(0, 0, -10)

	oldTerminal := enqueueRow(t, repo, old)
	oldPending := enqueueRow(t, repo, old)
	freshTerminal := enqueueRow(t, repo, time.Time{})

	// Drive two items to terminal state.
	for _, id := range []string{oldTerminal.ID, freshTerminal.ID} {
		_, err := testDB.Exec(ctx,
			`UPDATE notification_queue SET status = 'completed' WHERE id = $1`, id)
		require.NoError(t, err)
	}

	resp, err := newCronClient().POST("/api/v1/queue/cleanup", map[string]int{"days_to_keep": 7})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data map[string]int64 `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, int64(1), body.Data["deleted"])

	_, err = repo.GetItemByID(ctx, oldTerminal.ID)
	assert.ErrorIs(t, err, notificationspostgres.ErrItemNotFound)

	stored, err := repo.GetItemByID(ctx, oldPending.ID)
	require.NoError(t, err)
	assert.Equal(t, notifications.QueueStatusPending, stored.Status)

	_, err = repo.GetItemByID(ctx, freshTerminal.ID)
	assert.NoError(t, err)
}

func TestQueue_StatsRequiresAdminKey(t *testing.T) {
	cleanupTables(t)

	resp, err := newTestClient().GET("/api/v1/queue/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	repo := notificationspostgres.NewRepository(testDB)
	enqueueRow(t, repo, time.Time{})

	resp, err = newAdminClient().GET("/api/v1/queue/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data notifications.QueueStats `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, int64(1), body.Data.Pending)
}
