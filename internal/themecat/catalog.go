package themecat

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed themes.yaml
var defaultFiles embed.FS

// Catalog maps theme codes to human-readable descriptions. It is loaded
// once at startup and never mutated afterwards, so concurrent reads need
// no locking.
type Catalog struct {
	data  map[string]string
	codes []string
}

// New loads the embedded default vocabulary and then applies overrides
// from dir if provided. Override files are plain YAML maps of
// code -> description; later files win.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{data: make(map[string]string)}

	raw, err := fs.ReadFile(defaultFiles, "themes.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded themes: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}

	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}

	c.codes = make([]string, 0, len(c.data))
	for code := range c.data {
		c.codes = append(c.codes, code)
	}
	sort.Strings(c.codes)
	return c, nil
}

func (c *Catalog) applyYAML(b []byte) error {
	var m map[string]string
	if err := yaml.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("parse theme yaml: %w", err)
	}
	for code, desc := range m {
		code = strings.TrimSpace(code)
		if code == "" || strings.TrimSpace(desc) == "" {
			continue
		}
		c.data[code] = desc
	}
	return nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read theme override dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	// deterministic application order
	sort.Strings(files)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.applyYAML(b); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// Known reports whether code belongs to the vocabulary.
func (c *Catalog) Known(code string) bool {
	_, ok := c.data[strings.TrimSpace(code)]
	return ok
}

// Describe returns the human-readable description for code, falling back
// to the code itself for unknown themes.
func (c *Catalog) Describe(code string) string {
	if desc, ok := c.data[strings.TrimSpace(code)]; ok {
		return desc
	}
	return code
}

// Codes returns all theme codes in sorted order.
func (c *Catalog) Codes() []string {
	return append([]string(nil), c.codes...)
}
