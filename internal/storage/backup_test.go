package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupCampaign(t *testing.T) {
	fs := newTestStorage(t, nil)
	campaignDir := t.TempDir()

	files := map[string]string{
		"npc_directory.md":   "### **Aria** ⭐⭐⭐ [ALLY]",
		"character_sheet.md": "**Level:** 3",
		"custom_notes.md":    "unmapped files are copied too",
		"map.png":            "not markdown",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(campaignDir, name), []byte(content), 0o644))
	}

	n, err := fs.BackupCampaign(context.Background(), "session_a", campaignDir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dst := fs.BackupDir("session_a")
	assert.Equal(t, filepath.Join(fs.Dir(), "session_a_backup"), dst)

	data, err := os.ReadFile(filepath.Join(dst, "npc_directory.md"))
	require.NoError(t, err)
	assert.Equal(t, files["npc_directory.md"], string(data))

	_, err = os.Stat(filepath.Join(dst, "map.png"))
	assert.True(t, os.IsNotExist(err))

	// backup directories are not listed as sessions
	list, err := fs.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBackupCampaign_InvalidID(t *testing.T) {
	fs := newTestStorage(t, nil)
	_, err := fs.BackupCampaign(context.Background(), "../x", t.TempDir())
	assert.Error(t, err)
}
