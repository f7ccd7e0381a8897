// Package loader reads the campaign's markdown files, runs the role parsers
// over them, and serves keyed lookups from an in-memory cache.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/jwebster45206/solo-dm/internal/fsutil"
	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/campaign"
)

var (
	ErrDirectoryNotFound = errors.New("campaign directory not found")
	ErrNoFilesLoaded     = errors.New("no campaign files loaded")
	ErrUnknownKey        = errors.New("unknown campaign file key")
)

// Loader owns the campaign file cache.
type Loader struct {
	dir     string
	mapping map[string]string
	logger  *slog.Logger

	mu    sync.RWMutex
	files map[string]*campaign.File
}

// New creates a Loader for dir. overrides replaces filenames in the default
// mapping by key; keys not in the default mapping are added as reference files.
func New(dir string, overrides map[string]string, logger *slog.Logger) *Loader {
	mapping := maps.Clone(campaign.DefaultFileMapping)
	for k, v := range overrides {
		if v != "" {
			mapping[k] = v
		}
	}
	return &Loader{
		dir:     dir,
		mapping: mapping,
		logger:  logger,
		files:   make(map[string]*campaign.File),
	}
}

// Dir returns the campaign directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Mapping returns a copy of the key to filename mapping.
func (l *Loader) Mapping() map[string]string {
	return maps.Clone(l.mapping)
}

// LoadAll reads every mapped file, replacing the cache. Missing files are
// skipped. The returned map holds exactly the files that loaded.
func (l *Loader) LoadAll(ctx context.Context) (map[string]*campaign.File, error) {
	info, err := os.Stat(l.dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, l.dir)
	}

	loaded := make(map[string]*campaign.File, len(l.mapping))
	for _, key := range slices.Sorted(maps.Keys(l.mapping)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := l.readFile(key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				l.logger.Warn("Campaign file not found", "key", key, "filename", l.mapping[key])
			} else {
				l.logger.Warn("Failed to read campaign file", "key", key, "error", err)
			}
			continue
		}
		loaded[key] = f
	}

	l.mu.Lock()
	l.files = loaded
	l.mu.Unlock()

	if len(loaded) == 0 {
		return nil, fmt.Errorf("%w from %s", ErrNoFilesLoaded, l.dir)
	}

	l.logger.Info("Campaign files loaded", "count", len(loaded), "expected", len(l.mapping), "dir", l.dir)
	return maps.Clone(loaded), nil
}

func (l *Loader) readFile(key string) (*campaign.File, error) {
	path := filepath.Join(l.dir, l.mapping[key])
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.newFile(key, string(data), info.ModTime()), nil
}

// newFile builds a cache entry, running the role parser. A parse failure is
// logged and leaves the payload nil.
func (l *Loader) newFile(key, content string, modified time.Time) *campaign.File {
	f := &campaign.File{
		Key:          key,
		Filename:     l.mapping[key],
		Content:      content,
		LastModified: modified,
		FileType:     campaign.TypeForKey(key),
	}

	parsed, err := campaign.Parse(f.FileType, content)
	if err != nil {
		l.logger.Warn("Failed to parse campaign file", "key", key, "filename", f.Filename, "error", err)
		return f
	}
	f.Parsed = parsed

	if npcs := f.NPCs(); len(npcs) > 0 {
		l.warnDuplicateNPCs(f.Filename, npcs)
	}
	return f
}

func (l *Loader) warnDuplicateNPCs(filename string, npcs []*actor.NPC) {
	seen := make(map[string]int, len(npcs))
	for _, n := range npcs {
		seen[n.Name]++
		if seen[n.Name] == 2 {
			l.logger.Warn("Duplicate NPC name in directory; keeping both records", "filename", filename, "name", n.Name)
		}
	}
}

// Get returns the cached file for key, or nil.
func (l *Loader) Get(key string) *campaign.File {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.files[key]
}

// Files returns a snapshot of the cache.
func (l *Loader) Files() map[string]*campaign.File {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.files)
}

// Keys returns the loaded keys in sorted order.
func (l *Loader) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.files))
}

// Len returns the number of loaded files.
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.files)
}

// NPCs returns the parsed NPC directory.
func (l *Loader) NPCs() []*actor.NPC {
	return l.Get(string(campaign.FileTypeNPCDirectory)).NPCs()
}

// CharacterStats returns the parsed character sheet, or nil.
func (l *Loader) CharacterStats() *actor.Character {
	return l.Get(string(campaign.FileTypeCharacterSheet)).Character()
}

// Missions returns the parsed missions.
func (l *Loader) Missions() []*campaign.Mission {
	return l.Get(string(campaign.FileTypeMissions)).Missions()
}

// QuickReference returns the parsed quick reference values.
func (l *Loader) QuickReference() campaign.QuickReference {
	return l.Get(string(campaign.FileTypeQuickReference)).QuickReference()
}

// Save atomically overwrites the file for key, then re-parses it into the cache.
func (l *Loader) Save(key, content string) error {
	filename, ok := l.mapping[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	path := filepath.Join(l.dir, filename)
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		l.logger.Error("Failed to save campaign file", "key", key, "error", err)
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}

	modified := time.Now()
	if info, err := os.Stat(path); err == nil {
		modified = info.ModTime()
	}

	f := l.newFile(key, content, modified)

	l.mu.Lock()
	l.files[key] = f
	l.mu.Unlock()

	l.logger.Debug("Campaign file saved", "key", key, "bytes", len(content))
	return nil
}

// MarkdownFiles lists every *.md file in the campaign directory, mapped or not.
func (l *Loader) MarkdownFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign files: %w", err)
	}
	slices.Sort(matches)
	return matches, nil
}
