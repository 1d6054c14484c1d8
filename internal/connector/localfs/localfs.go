// Package localfs reads sales reports from the local filesystem and watches
// a drop directory for new ones.
package localfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/fsnotify.v1"

	"github.com/crimson-sun/eventimx/internal/connector"
	"github.com/crimson-sun/eventimx/internal/model"
)

const defaultDebounce = 500 * time.Millisecond

func init() {
	connector.Register("localfs", func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector for report files on disk.
type Connector struct{}

// IsReport reports whether name has an HTML extension.
func IsReport(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".htm", ".html":
		return true
	}
	return false
}

// Query reads the files in params.Paths, or every report in cfg.Endpoint
// (sorted by name) when no paths are given.
func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.Document, error) {
	paths := params.Paths
	if len(paths) == 0 {
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("localfs connector: no paths and no directory")
		}
		listed, err := listReports(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		paths = listed
	}

	var docs []model.Document
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := readDocument(p, time.Now())
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return params.Apply(docs), nil
}

// Stream watches cfg.Endpoint and emits a document for each report file
// that is created or written, once it has been quiet for the debounce
// interval (cfg.Extra["debounce"], default 500ms).
func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.Document, error) {
	dir := cfg.Endpoint
	if dir == "" {
		return nil, fmt.Errorf("localfs connector: missing watch directory")
	}
	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("localfs connector: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("localfs connector: %s is not a directory", dir)
	}

	debounce := defaultDebounce
	if raw := cfg.Extra["debounce"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			debounce = d
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("localfs connector: creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("localfs connector: watching directory %s: %w", dir, err)
	}

	ch := make(chan model.Document, 16)
	go watchLoop(ctx, watcher, debounce, ch)
	return ch, nil
}

// watchLoop collects file events and flushes paths that have been quiet
// for at least debounce. Writers usually produce several Write events per
// file; only the last one matters.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, ch chan<- model.Document) {
	defer close(ch)
	defer watcher.Close()

	tick := debounce / 4
	if tick <= 0 {
		tick = debounce
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	pending := map[string]time.Time{}
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !IsReport(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Write == fsnotify.Write:
				pending[event.Name] = time.Now()
			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				delete(pending, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watch error", "connector", "localfs", "error", err)

		case now := <-ticker.C:
			for _, path := range quiet(pending, now, debounce) {
				delete(pending, path)
				doc, err := readDocument(path, now)
				if err != nil {
					slog.Warn("read report", "connector", "localfs", "path", path, "error", err)
					continue
				}
				select {
				case ch <- doc:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// quiet returns the pending paths last touched at least d before now, sorted.
func quiet(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var ready []string
	for path, seen := range pending {
		if now.Sub(seen) >= d {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func listReports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("localfs connector: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsReport(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

func readDocument(path string, now time.Time) (model.Document, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("localfs connector: %w", err)
	}
	return model.Document{
		Name:       filepath.Base(path),
		Source:     "localfs",
		Body:       body,
		ReceivedAt: now,
	}, nil
}
