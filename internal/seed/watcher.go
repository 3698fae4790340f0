package seed

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Watcher loads seed files into a Corpus and keeps them in sync as they
// change on disk. Only directories holding an initial match are watched.
type Watcher struct {
	fsw      *fsnotify.Watcher
	corpus   *Corpus
	patterns []string // absolute glob patterns
	paths    []string
}

// NewWatcher expands the glob patterns, loads every matching file into
// corpus and prepares OS-level notifications for their directories.
// Patterns support recursive matches like seeds/**/*.log via doublestar.
func NewWatcher(patterns []string, corpus *Corpus) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, corpus: corpus}
	dirs := make(map[string]bool)

	for _, pattern := range patterns {
		absPattern, err := filepath.Abs(pattern)
		if err != nil {
			log.Printf("seed: bad pattern %q: %v", pattern, err)
			continue
		}
		w.patterns = append(w.patterns, absPattern)

		matches, err := expandGlob(absPattern)
		if err != nil {
			log.Printf("seed: failed to expand pattern %q: %v", pattern, err)
			continue
		}
		for _, m := range matches {
			if err := w.load(m); err != nil {
				log.Printf("seed: cannot load %s: %v", m, err)
				continue
			}
			w.paths = append(w.paths, m)
			dirs[filepath.Dir(m)] = true
		}
	}

	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			log.Printf("seed: cannot watch %s: %v", dir, err)
		}
	}

	return w, nil
}

// Paths returns the seed files loaded at startup.
func (w *Watcher) Paths() []string {
	return w.paths
}

// Start applies file changes to the corpus. It blocks until the context
// is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("seed: watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !w.matches(ev.Name) {
		return
	}

	switch {
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		if err := w.load(ev.Name); err != nil {
			log.Printf("seed: reload %s failed: %v", ev.Name, err)
		}
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.corpus.RemoveFile(ev.Name)
		log.Printf("seed: dropped %s", ev.Name)
	}
}

func (w *Watcher) matches(path string) bool {
	for _, p := range w.patterns {
		if ok, _ := doublestar.PathMatch(p, path); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) load(path string) error {
	lines, err := ReadLines(path)
	if err != nil {
		return err
	}
	w.corpus.SetFile(path, lines)
	return nil
}

// ReadLines returns the non-blank lines of a seed file. Lines starting
// with # are comments.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

// expandGlob resolves a glob pattern to matching file paths.
func expandGlob(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
}
