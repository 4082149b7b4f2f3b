package queue

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := writeLine(&buf, AuthEvent{
		Type:       EventUserLogin,
		UserID:     7,
		SessionID:  12,
		Provider:   "password",
		IP:         "10.0.0.1",
		UserAgent:  "curl/8",
		OccurredAt: at,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"[2024-05-01T12:00:00Z] user.login | user_id=7 | session_id=12 | provider=password | ip=10.0.0.1 | ua=\"curl/8\"\n",
		buf.String())
}

func TestAuditConsumer_HandleAppends(t *testing.T) {
	dir := t.TempDir()
	a := &AuditConsumer{
		LogPath: filepath.Join(dir, "logs", "auth.log"),
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	require.NoError(t, a.handle([]byte(`{"type":"sessions.revoked_all","user_id":3,"occurred_at":"2024-05-01T00:00:00Z"}`)))
	require.NoError(t, a.handle([]byte(`{"type":"user.registered","user_id":4,"occurred_at":"2024-05-01T00:00:01Z"}`)))

	assert.Error(t, a.handle([]byte(`not json`)))
	assert.Error(t, a.handle([]byte(`{"user_id":1}`)))

	data, err := os.ReadFile(a.LogPath)
	require.NoError(t, err)
	assert.Equal(t,
		"[2024-05-01T00:00:00Z] sessions.revoked_all | user_id=3\n[2024-05-01T00:00:01Z] user.registered | user_id=4\n",
		string(data))
}
