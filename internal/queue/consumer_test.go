package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageAppendsLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")

	require.NoError(t, handleMessage(dir, []byte(`{"action":"created","movie_id":7,"name":"Heat","date":"1995-12-15","occurred_at":"2026-01-01T10:00:00Z"}`)))
	require.NoError(t, handleMessage(dir, []byte(`{"action":"deleted","movie_id":7,"occurred_at":"2026-01-02T10:00:00Z"}`)))

	data, err := os.ReadFile(filepath.Join(dir, AuditLogName))
	require.NoError(t, err)
	assert.Equal(t,
		"[2026-01-01T10:00:00Z] Movie created | movie_id=7 | name=\"Heat\" | date=1995-12-15\n"+
			"[2026-01-02T10:00:00Z] Movie deleted | movie_id=7\n",
		string(data))
}

func TestHandleMessageRejectsMalformedPayloads(t *testing.T) {
	dir := t.TempDir()

	assert.Error(t, handleMessage(dir, []byte(`not json`)))
	assert.Error(t, handleMessage(dir, []byte(`{"action":"created"}`)))

	_, err := os.Stat(filepath.Join(dir, AuditLogName))
	assert.True(t, os.IsNotExist(err))
}
