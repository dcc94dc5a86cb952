// Package catalog maps caller-facing style names to the provider models
// that serve them.
//
// Styles are the routing layer of generation: a caller asks for
// "pixel-art" and the image family resolves that to a concrete model path
// and prompt prefix. The built-in catalog ships embedded; a styles
// directory, when configured, overlays it. Source data is static for the
// process lifetime, so the catalog loads once on first use and never
// invalidates.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/miragelabs/mirage/internal/log"
)

//go:embed styles.json
var embeddedStyles []byte

// Style describes one named generation style and the model that serves it.
type Style struct {
	Name         string   `json:"name"`
	Family       string   `json:"family"`
	Description  string   `json:"description"`
	Model        string   `json:"model"`
	PromptPrefix string   `json:"prompt_prefix,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Default      bool     `json:"default,omitempty"`
}

// Catalog is a read-through style lookup.
type Catalog struct {
	dir    string
	logger log.Logger

	once    sync.Once
	loadErr error
	styles  []Style
	byKey   map[string]int
}

// New creates a catalog. dir optionally names a directory of *.json style
// files overlaying the embedded set; empty means embedded only.
func New(dir string, logger log.Logger) *Catalog {
	return &Catalog{dir: dir, logger: logger}
}

// All returns every style in load order.
func (c *Catalog) All() ([]Style, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	out := make([]Style, len(c.styles))
	copy(out, c.styles)
	return out, nil
}

// List returns the styles of one family, or all styles when family is
// empty, in load order.
func (c *Catalog) List(family string) ([]Style, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	family = normalize(family)
	var out []Style
	for _, s := range c.styles {
		if family == "" || normalize(s.Family) == family {
			out = append(out, s)
		}
	}
	return out, nil
}

// Get finds a style by name. family narrows the lookup; when empty, the
// first family declaring the name wins.
func (c *Catalog) Get(family, name string) (Style, error) {
	if err := c.load(); err != nil {
		return Style{}, err
	}
	name = normalize(name)
	if name == "" {
		return Style{}, fmt.Errorf("style name is required")
	}
	if family != "" {
		if i, ok := c.byKey[key(family, name)]; ok {
			return c.styles[i], nil
		}
		return Style{}, fmt.Errorf("style %q not found for %s assets; call list_styles to see the catalog", name, family)
	}
	for _, s := range c.styles {
		if normalize(s.Name) == name {
			return s, nil
		}
	}
	return Style{}, fmt.Errorf("style %q not found; call list_styles to see the catalog", name)
}

// Resolve picks the style that should serve a generation request. An
// empty name falls back to the family default.
func (c *Catalog) Resolve(family, name string) (Style, error) {
	if err := c.load(); err != nil {
		return Style{}, err
	}
	if normalize(name) != "" {
		return c.Get(family, name)
	}

	family = normalize(family)
	var first *Style
	for i := range c.styles {
		s := &c.styles[i]
		if normalize(s.Family) != family {
			continue
		}
		if s.Default {
			return *s, nil
		}
		if first == nil {
			first = s
		}
	}
	if first != nil {
		return *first, nil
	}
	return Style{}, fmt.Errorf("no styles registered for %s assets", family)
}

func (c *Catalog) load() error {
	c.once.Do(func() {
		c.byKey = make(map[string]int)

		var embedded []Style
		if err := json.Unmarshal(embeddedStyles, &embedded); err != nil {
			c.loadErr = fmt.Errorf("parsing embedded styles: %w", err)
			return
		}
		for _, s := range embedded {
			c.put(s)
		}

		if c.dir == "" {
			return
		}
		if err := c.loadDir(); err != nil {
			c.loadErr = err
		}
	})
	return c.loadErr
}

func (c *Catalog) loadDir() error {
	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("scanning styles directory: %w", err)
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading styles file %s: %w", path, err)
		}
		var styles []Style
		if err := json.Unmarshal(data, &styles); err != nil {
			return fmt.Errorf("parsing styles file %s: %w", path, err)
		}
		for _, s := range styles {
			c.put(s)
		}
		c.logger.Info("styles loaded", "file", path, "count", len(styles))
	}
	return nil
}

// put inserts or replaces by family/name, keeping the original slot on
// replacement so load order stays stable.
func (c *Catalog) put(s Style) {
	k := key(s.Family, s.Name)
	if i, ok := c.byKey[k]; ok {
		c.styles[i] = s
		return
	}
	c.byKey[k] = len(c.styles)
	c.styles = append(c.styles, s)
}

func key(family, name string) string {
	return normalize(family) + "/" + normalize(name)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
