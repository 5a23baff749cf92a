package operator

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/metrics"
)

// Overlay is the YAML structure deployments use to adjust the built-in
// catalog without recompiling: default-form overrides per kind and extra
// restricted pairs.
type Overlay struct {
	Version    string                  `yaml:"version"`
	Operators  map[string]OverlayEntry `yaml:"operators"`
	Restricted []RestrictedPair        `yaml:"restricted"`
}

// OverlayEntry overrides parts of one kind's catalog entry.
type OverlayEntry struct {
	Form          map[string]any `yaml:"form"`
	UselessFields []string       `yaml:"useless_fields"`
}

// RestrictedPair forbids edges from one kind to others.
type RestrictedPair struct {
	From string   `yaml:"from"`
	To   []string `yaml:"to"`
}

// Loader reads a catalog overlay file and watches it for changes.
// With an empty path it serves the built-in catalog unchanged.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Catalog
	onChange []func(*Catalog)
	watcher  *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cat, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cat
	return l, nil
}

// Catalog returns the current (latest) catalog.
func (l *Loader) Catalog() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the catalog reloads.
func (l *Loader) OnChange(fn func(*Catalog)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the catalog on file
// changes. Call the returned stop function to clean up. Watching without an
// overlay path is an error.
func (l *Loader) Watch() (stop func(), err error) {
	if l.path == "" {
		return nil, fmt.Errorf("catalog watcher: no overlay path configured")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalog watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("catalog watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					cat, err := l.load()
					if err != nil {
						// Keep serving the previous catalog.
						continue
					}
					l.swap(cat)
					metrics.CatalogReloads.Inc()
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the overlay file.
func (l *Loader) Reload() (*Catalog, error) {
	cat, err := l.load()
	if err != nil {
		return nil, err
	}
	l.swap(cat)
	return cat, nil
}

func (l *Loader) swap(cat *Catalog) {
	l.mu.Lock()
	l.current = cat
	callbacks := make([]func(*Catalog), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cat)
	}
}

func (l *Loader) load() (*Catalog, error) {
	cat := DefaultCatalog()
	if l.path == "" {
		return cat, nil
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog overlay %s: %w", l.path, err)
	}
	var ov Overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("parse catalog overlay %s: %w", l.path, err)
	}
	if err := applyOverlay(cat, &ov); err != nil {
		return nil, fmt.Errorf("apply catalog overlay %s: %w", l.path, err)
	}
	return cat, nil
}

func applyOverlay(cat *Catalog, ov *Overlay) error {
	for name, oe := range ov.Operators {
		e := cat.Lookup(Kind(name))
		if e == nil {
			return fmt.Errorf("overlay references unknown operator kind %q", name)
		}
		for k, v := range oe.Form {
			e.DefaultForm[k] = normalizeYAML(v)
		}
		if oe.UselessFields != nil {
			e.UselessFields = oe.UselessFields
		}
	}
	for _, rp := range ov.Restricted {
		if cat.Lookup(Kind(rp.From)) == nil {
			return fmt.Errorf("overlay restricts unknown operator kind %q", rp.From)
		}
		for _, to := range rp.To {
			cat.Forbid(Kind(rp.From), Kind(to))
		}
	}
	return nil
}

// normalizeYAML converts yaml.v3's map[string]any values recursively so
// overlay forms have the same shape as JSON-decoded ones.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeYAML(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeYAML(e)
		}
		return out
	default:
		return v
	}
}
