package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwebster45206/solo-dm/internal/fsutil"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

// BackupDir returns the backup directory for a session.
func (f *FileStorage) BackupDir(id string) string {
	return filepath.Join(f.dir, id+"_backup")
}

// BackupCampaign copies campaignDir/*.md verbatim into <dir>/<id>_backup/.
func (f *FileStorage) BackupCampaign(ctx context.Context, id, campaignDir string) (int, error) {
	if err := state.ValidateSessionID(id); err != nil {
		return 0, err
	}

	files, err := filepath.Glob(filepath.Join(campaignDir, "*.md"))
	if err != nil {
		return 0, fmt.Errorf("failed to list campaign files: %w", err)
	}

	dst := f.BackupDir(id)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create backup directory: %w", err)
	}

	copied := 0
	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		if err := fsutil.CopyFile(src, filepath.Join(dst, filepath.Base(src))); err != nil {
			f.logger.Warn("Failed to back up campaign file", "file", src, "error", err)
			continue
		}
		copied++
	}

	f.logger.Info("Campaign files backed up", "session_id", id, "count", copied, "dir", dst)
	return copied, nil
}
