package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/solo-dm/internal/fsutil"
	"github.com/jwebster45206/solo-dm/internal/services"
	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/chat"
	"github.com/jwebster45206/solo-dm/pkg/state"
	"github.com/jwebster45206/solo-dm/pkg/storage"
)

const summaryCacheTTL = 24 * time.Hour

// Session operations (filesystem-backed)

// SaveSession stamps SavedAt and atomically writes <dir>/<id>.json.
func (f *FileStorage) SaveSession(ctx context.Context, s *state.GameSession) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	if err := state.ValidateSessionID(s.SessionID); err != nil {
		return err
	}

	s.SavedAt = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		f.logger.Error("Failed to marshal session", "session_id", s.SessionID, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := fsutil.WriteFileAtomic(f.sessionPath(s.SessionID), data, 0o644); err != nil {
		f.logger.Error("Failed to save session", "session_id", s.SessionID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}

	f.logger.Debug("Session saved", "session_id", s.SessionID, "bytes", len(data))
	return nil
}

func (f *FileStorage) LoadSession(ctx context.Context, id string) (*state.GameSession, error) {
	if err := state.ValidateSessionID(id); err != nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, id)
	}

	data, err := os.ReadFile(f.sessionPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s state.GameSession
	if err := json.Unmarshal(data, &s); err != nil {
		f.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	normalize(&s, id)
	return &s, nil
}

// normalize fills fields older or hand-edited files may lack.
func normalize(s *state.GameSession, id string) {
	if s.SessionID == "" {
		s.SessionID = id
	}
	if s.Status == "" {
		s.Status = state.StatusActive
	}
	if s.Character == nil {
		s.Character = actor.NewCharacter("")
	}
	if s.ActionsTaken == nil {
		s.ActionsTaken = make([]state.ActionEntry, 0)
	}
	if s.ConversationHistory == nil {
		s.ConversationHistory = make([]chat.ChatMessage, 0)
	}
}

type sessionFile struct {
	id      string
	path    string
	modTime time.Time
}

// sessionFiles lists <id>.json files, newest first.
func (f *FileStorage) sessionFiles() ([]sessionFile, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var files []sessionFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, sessionFile{
			id:      strings.TrimSuffix(name, ".json"),
			path:    filepath.Join(f.dir, name),
			modTime: info.ModTime(),
		})
	}

	slices.SortFunc(files, func(a, b sessionFile) int {
		if c := b.modTime.Compare(a.modTime); c != 0 {
			return c
		}
		return strings.Compare(b.id, a.id)
	})
	return files, nil
}

func (f *FileStorage) LatestSessionID(ctx context.Context) (string, error) {
	files, err := f.sessionFiles()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", storage.ErrNoSessionsFound
	}
	return files[0].id, nil
}

// sessionHeader is the subset of a session file needed for listings.
type sessionHeader struct {
	SessionID string       `json:"session_id"`
	Status    state.Status `json:"status"`
	Character struct {
		Name string `json:"name"`
	} `json:"character"`
	SessionStart time.Time         `json:"session_start"`
	ActionsTaken []json.RawMessage `json:"actions_taken"`
}

// ListSessions returns session summaries sorted by modification time,
// newest first. Unreadable files are skipped.
func (f *FileStorage) ListSessions(ctx context.Context) ([]state.SessionSummary, error) {
	files, err := f.sessionFiles()
	if err != nil {
		return nil, err
	}

	summaries := make([]state.SessionSummary, 0, len(files))
	for _, sf := range files {
		if sum, ok := f.cachedSummary(ctx, sf); ok {
			summaries = append(summaries, sum)
			continue
		}

		data, err := os.ReadFile(sf.path)
		if err != nil {
			f.logger.Warn("Failed to read session file", "path", sf.path, "error", err)
			continue
		}
		var h sessionHeader
		if err := json.Unmarshal(data, &h); err != nil {
			f.logger.Warn("Skipping corrupt session file", "path", sf.path, "error", err)
			continue
		}

		sum := state.SessionSummary{
			SessionID:     h.SessionID,
			CharacterName: h.Character.Name,
			SessionStart:  h.SessionStart,
			ActionCount:   len(h.ActionsTaken),
			Status:        h.Status,
			ModTime:       sf.modTime,
			Path:          sf.path,
		}
		if sum.SessionID == "" {
			sum.SessionID = sf.id
		}
		if sum.Status == "" {
			sum.Status = state.StatusActive
		}
		f.cacheSummary(ctx, sf, sum)
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// DeleteSession removes the session file. Backups are left in place.
func (f *FileStorage) DeleteSession(ctx context.Context, id string) (bool, error) {
	if err := state.ValidateSessionID(id); err != nil {
		return false, nil
	}
	path := f.sessionPath(id)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat session file: %w", err)
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete session file: %w", err)
	}

	f.evictSummary(ctx, sessionFile{id: id, path: path, modTime: info.ModTime()})
	f.logger.Info("Session deleted", "session_id", id)
	return true, nil
}

// Summary cache, keyed by id and modification time so edits invalidate it.

func summaryKey(sf sessionFile) string {
	return fmt.Sprintf("session_summary:%s:%d", sf.id, sf.modTime.UnixNano())
}

func (f *FileStorage) cachedSummary(ctx context.Context, sf sessionFile) (state.SessionSummary, bool) {
	if f.cache == nil {
		return state.SessionSummary{}, false
	}
	var sum state.SessionSummary
	hit, err := services.GetJSON(ctx, f.cache, summaryKey(sf), &sum)
	if err != nil {
		f.logger.Debug("Failed to read session summary cache", "session_id", sf.id, "error", err)
	}
	return sum, hit
}

func (f *FileStorage) cacheSummary(ctx context.Context, sf sessionFile, sum state.SessionSummary) {
	if f.cache == nil {
		return
	}
	if err := services.SetJSON(ctx, f.cache, summaryKey(sf), sum, summaryCacheTTL); err != nil {
		f.logger.Debug("Failed to cache session summary", "session_id", sf.id, "error", err)
	}
}

func (f *FileStorage) evictSummary(ctx context.Context, sf sessionFile) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Del(ctx, summaryKey(sf)); err != nil {
		f.logger.Debug("Failed to evict session summary", "session_id", sf.id, "error", err)
	}
}
