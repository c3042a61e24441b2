package transcript

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-shuttle/wingman/internal/history"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionTurnsAndDecisions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	sessionID, err := store.BeginSession(ctx, 42, "Alice", "gemini")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	require.NoError(t, store.RecordTurn(ctx, sessionID, history.Turn{ID: 1, Role: history.RolePeer, Text: "hello"}))
	require.NoError(t, store.RecordTurn(ctx, sessionID, history.Turn{ID: 2, Role: history.RoleSelf, Text: "hi there"}))
	require.NoError(t, store.RecordDecision(ctx, sessionID, 1, "sent", "hi there"))

	var buf bytes.Buffer
	require.NoError(t, store.Export(ctx, &buf))

	var rows []exportRow
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var row exportRow
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}

	require.Len(t, rows, 2)
	assert.Equal(t, sessionID, rows[0].SessionID)
	assert.Equal(t, int64(1), rows[0].MessageID)
	assert.Equal(t, "peer", rows[0].Role)
	assert.Equal(t, "hello", rows[0].Text)
	assert.Equal(t, "self", rows[1].Role)
}

func TestExportEmpty(t *testing.T) {
	store := openTestStore(t)

	var buf bytes.Buffer
	require.NoError(t, store.Export(context.Background(), &buf))
	assert.Zero(t, buf.Len())
}

func TestNopStore(t *testing.T) {
	ctx := context.Background()
	var store Store = NopStore{}

	id, err := store.BeginSession(ctx, 1, "x", "kobold")
	require.NoError(t, err)
	assert.Empty(t, id)

	assert.NoError(t, store.RecordTurn(ctx, id, history.Turn{ID: 1, Role: history.RolePeer, Text: "a"}))
	assert.NoError(t, store.RecordDecision(ctx, id, 1, "discarded", ""))
	assert.NoError(t, store.Close())
}
