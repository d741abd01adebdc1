//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperbox/whisperbox/internal/testutil"
)

func queueCountFor(t *testing.T, userID string) int64 {
	t.Helper()
	var count int64
	err := testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM notification_queue WHERE recipient_user_id = $1`, userID).Scan(&count)
	require.NoError(t, err)
	return count
}

func TestMessages_SubmitStoresAndEnqueues(t *testing.T) {
	cleanupTables(t)
	userID := createProfile(t, "premiumkim", true, true, "telegram", "chat-42")

	resp, err := newTestClient().POST("/api/v1/u/premiumkim/messages",
		map[string]string{"content": "loved the show"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Data struct {
			ID        string    `json:"id"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.NotEmpty(t, body.Data.ID)

	var content string
	err = testDB.QueryRow(context.Background(),
		`SELECT content FROM messages WHERE id = $1`, body.Data.ID).Scan(&content)
	require.NoError(t, err)
	assert.Equal(t, "loved the show", content)

	assert.Equal(t, int64(1), queueCountFor(t, userID))
}

func TestMessages_UsernameLookupIsCaseInsensitive(t *testing.T) {
	cleanupTables(t)
	createProfile(t, "MixedCase", false, false, "", "")

	resp, err := newTestClient().POST("/api/v1/u/mixedcase/messages",
		map[string]string{"content": "hello"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestMessages_UnknownProfileIs404(t *testing.T) {
	cleanupTables(t)

	resp, err := newTestClient().POST("/api/v1/u/nobody/messages",
		map[string]string{"content": "hello"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessages_FreeTierRecipientGetsNoNotification(t *testing.T) {
	cleanupTables(t)
	userID := createProfile(t, "freeuser", false, true, "telegram", "chat-42")

	resp, err := newTestClient().POST("/api/v1/u/freeuser/messages",
		map[string]string{"content": "hello"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The message itself is stored; only the notification is skipped.
	var count int64
	err = testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM messages WHERE recipient_user_id = $1`, userID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, int64(0), queueCountFor(t, userID))
}
