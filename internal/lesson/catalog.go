package lesson

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Catalog holds the active descriptor per lesson: compiled-in defaults,
// overridden by YAML files from the lessons directory. It can watch the
// directory and pick up edits while the server runs.
type Catalog struct {
	logger *zap.Logger
	dir    string

	mu   sync.RWMutex
	desc map[string]Descriptor
}

// NewCatalog builds a catalog seeded with the built-in defaults. dir may
// be empty, in which case only defaults are served.
func NewCatalog(dir string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		logger: logger,
		dir:    dir,
		desc:   Defaults(),
	}
}

// Load reads every *.yaml descriptor in the catalog directory over the
// defaults. Unknown slugs are kept too, but only registered slugs can be
// instantiated. Missing directory is not an error.
func (c *Catalog) Load() error {
	if c.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		c.loadFile(filepath.Join(c.dir, entry.Name()))
	}
	return nil
}

func (c *Catalog) loadFile(path string) {
	d, err := ReadDescriptor(path)
	if err != nil {
		c.logger.Warn("skipping lesson descriptor", zap.String("path", path), zap.Error(err))
		return
	}

	c.mu.Lock()
	c.desc[d.Slug] = d
	c.mu.Unlock()

	c.logger.Info("lesson descriptor loaded",
		zap.String("slug", d.Slug),
		zap.String("path", path),
	)
}

// Watch reloads descriptors as files in the catalog directory change,
// until ctx is done. It returns immediately when the catalog has no
// directory.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return err
	}
	c.logger.Info("watching lesson descriptors", zap.String("dir", c.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isYAML(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				c.loadFile(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("descriptor watcher error", zap.Error(err))
		}
	}
}

// Get returns the active descriptor for slug.
func (c *Catalog) Get(slug string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.desc[slug]
	return d, ok
}

// List returns the registered lessons' descriptors in teaching order.
func (c *Catalog) List() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Descriptor, 0, len(Order))
	for _, slug := range Order {
		if d, ok := c.desc[slug]; ok {
			out = append(out, d)
		}
	}
	return out
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
