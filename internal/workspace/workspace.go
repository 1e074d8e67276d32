// Package workspace implements C4 Workspace Documents: a lazily-built,
// watch-invalidated file index and text cache scoped to the configured
// include/exclude globs under the mounted workspace root.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/orbitcode/lsproxy/internal/adapter/ristretto"
	"github.com/orbitcode/lsproxy/internal/config"
	lspDomain "github.com/orbitcode/lsproxy/internal/domain/lsp"
)

// Documents indexes the files under root matching include \ exclude, and
// caches their text. One Documents is built per workspace root and shared
// by every LSP Client the Manager starts; the index is not partitioned by
// language, so a client filters it by extension itself.
type Documents struct {
	root    string
	include []string
	exclude []string

	mu    sync.RWMutex
	files map[string]struct{} // absolute paths

	cache *ristretto.Cache

	watcher  *fsnotify.Watcher
	debounce time.Duration
	events   *Broadcaster

	closeOnce sync.Once
	done      chan struct{}
}

// New builds a Documents index for root, lazily: the file walk happens on
// the first ListFiles call (or the first watcher event), not in New. Read
// goes straight to disk and does not build the index.
func New(root string, include, exclude []string, debounce time.Duration, cacheCfg config.Cache) (*Documents, error) {
	cache, err := ristretto.New(cacheCfg.MaxCostBytes)
	if err != nil {
		return nil, fmt.Errorf("text cache: %w", err)
	}

	d := &Documents{
		root:     root,
		include:  include,
		exclude:  exclude,
		debounce: debounce,
		events:   NewBroadcaster(),
		done:     make(chan struct{}),
	}
	d.cache = cache

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify watcher: %w", err)
	}
	d.watcher = watcher
	if err := addRecursive(watcher, root); err != nil {
		slog.Warn("workspace: failed to watch some directories", "root", root, "error", err)
	}

	go d.watchLoop()

	return d, nil
}

// Subscribe registers a new watcher-event subscriber. The returned channel
// is bounded and lossy: a slow consumer misses events rather than stalling
// the debouncer, and must re-scan on its next query.
func (d *Documents) Subscribe() <-chan struct{} { return d.events.Subscribe() }

// Close stops the filesystem watcher and releases the text cache.
func (d *Documents) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
		_ = d.watcher.Close()
		d.cache.Close()
	})
}

// ListFiles returns all absolute paths in the current index, sorted,
// building the index on first call.
func (d *Documents) ListFiles() ([]string, error) {
	d.mu.RLock()
	built := d.files != nil
	d.mu.RUnlock()

	if !built {
		if err := d.rebuild(); err != nil {
			return nil, err
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.files))
	for f := range d.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// Read returns the full text of an absolute path, or the UTF-16 slice
// delimited by rng if non-nil. Results are cached until a watcher event
// invalidates the entry.
func (d *Documents) Read(path string, rng *lspDomain.Range) (string, error) {
	if cached, ok, err := d.cache.Get(context.Background(), path); err == nil && ok {
		return sliceRange(string(cached), rng)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated against the workspace index
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)

	_ = d.cache.Set(context.Background(), path, data, 0)

	return sliceRange(text, rng)
}

// sliceRange extracts the portion of text delimited by rng (line/character,
// UTF-16 code units). A nil range returns the whole text.
func sliceRange(text string, rng *lspDomain.Range) (string, error) {
	if rng == nil {
		return text, nil
	}

	lines := strings.Split(text, "\n")
	if rng.Start.Line < 0 || rng.Start.Line >= len(lines) || rng.End.Line < 0 || rng.End.Line >= len(lines) {
		return "", fmt.Errorf("range out of bounds: %d lines available", len(lines))
	}

	if rng.Start.Line == rng.End.Line {
		line := lines[rng.Start.Line]
		start, end := clampUTF16(line, rng.Start.Character), clampUTF16(line, rng.End.Character)
		if start > end {
			return "", fmt.Errorf("range out of bounds: start after end")
		}
		return line[start:end], nil
	}

	var b strings.Builder
	first := lines[rng.Start.Line]
	b.WriteString(first[clampUTF16(first, rng.Start.Character):])
	for i := rng.Start.Line + 1; i < rng.End.Line; i++ {
		b.WriteString("\n")
		b.WriteString(lines[i])
	}
	last := lines[rng.End.Line]
	b.WriteString("\n")
	b.WriteString(last[:clampUTF16(last, rng.End.Character)])
	return b.String(), nil
}

// clampUTF16 converts a UTF-16 code-unit offset into a byte offset into
// line, clamping to the line's length for malformed ranges.
func clampUTF16(line string, utf16Offset int) int {
	units := 0
	for i, r := range line {
		if units >= utf16Offset {
			return i
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return len(line)
}

// rebuild walks root, applying include \ exclude, and replaces the index.
func (d *Documents) rebuild() error {
	files := make(map[string]struct{})

	err := filepath.WalkDir(d.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries, don't abort the walk
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return nil //nolint:nilerr
		}
		rel = filepath.ToSlash(rel)

		if !d.matches(rel) {
			return nil
		}
		files[path] = struct{}{}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", d.root, err)
	}

	d.mu.Lock()
	d.files = files
	d.mu.Unlock()
	return nil
}

func (d *Documents) matches(rel string) bool {
	included := len(d.include) == 0
	for _, pat := range d.include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pat := range d.exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return false
		}
	}
	return true
}

// watchLoop debounces filesystem events (~2s window per configuration) and
// invalidates affected index entries and cache slots before notifying
// subscribers.
func (d *Documents) watchLoop() {
	var timer *time.Timer
	pending := make(map[string]struct{})
	var mu sync.Mutex

	fire := func() {
		mu.Lock()
		paths := pending
		pending = make(map[string]struct{})
		mu.Unlock()

		for p := range paths {
			_ = d.cache.Delete(context.Background(), p)
		}
		if err := d.rebuild(); err != nil {
			slog.Warn("workspace: rebuild after watch event failed", "error", err)
		}
		d.events.Publish()
	}

	for {
		select {
		case <-d.done:
			return
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			mu.Lock()
			pending[ev.Name] = struct{}{}
			mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(d.debounce, fire)

			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addRecursive(d.watcher, ev.Name)
				}
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("workspace: watcher error", "error", err)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
