// Package msgcat holds the user-facing texts. Values are text/template
// strings keyed by flattened dot paths ("status.welcome").
package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.*.yaml
var defaultFiles embed.FS

const DefaultLanguage = "en"

var ErrUnknownLanguage = errors.New("unknown language")

type Catalog struct {
	lang string

	mu     sync.RWMutex
	data   map[string]string
	parsed map[string]*template.Template
}

// Languages lists the embedded catalogs.
func Languages() []string {
	entries, _ := fs.Glob(defaultFiles, "messages.*.yaml")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(strings.TrimPrefix(e, "messages."), ".yaml"))
	}
	sort.Strings(out)
	return out
}

// New loads the embedded English texts, then the chosen language on top,
// then an optional override file.
func New(lang, overrideFile string) (*Catalog, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = DefaultLanguage
	}
	c := &Catalog{lang: lang, data: make(map[string]string), parsed: make(map[string]*template.Template)}

	if err := c.loadEmbedded(DefaultLanguage); err != nil {
		return nil, err
	}
	if lang != DefaultLanguage {
		if err := c.loadEmbedded(lang); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(overrideFile) != "" {
		b, err := os.ReadFile(overrideFile)
		if err != nil {
			return nil, fmt.Errorf("read messages override: %w", err)
		}
		if err := c.applyYAML(b); err != nil {
			return nil, fmt.Errorf("parse %s: %w", overrideFile, err)
		}
	}
	return c, nil
}

// Must is New for the embedded catalogs, which always parse.
func Must(lang string) *Catalog {
	c, err := New(lang, "")
	if err != nil {
		c, _ = New(DefaultLanguage, "")
	}
	return c
}

func (c *Catalog) Language() string {
	return c.lang
}

func (c *Catalog) loadEmbedded(lang string) error {
	raw, err := fs.ReadFile(defaultFiles, "messages."+lang+".yaml")
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, lang)
	}
	return c.applyYAML(raw)
}

func (c *Catalog) applyYAML(b []byte) error {
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return err
	}
	flat := make(map[string]string)
	if err := flattenStrings(m, "", flat); err != nil {
		return err
	}
	c.mu.Lock()
	for k, v := range flat {
		c.data[k] = v
		delete(c.parsed, k)
	}
	c.mu.Unlock()
	return nil
}

func flattenStrings(src any, prefix string, out map[string]string) error {
	switch v := src.(type) {
	case map[string]any:
		for k, vv := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flattenStrings(vv, key, out); err != nil {
				return err
			}
		}
		return nil
	case string:
		if prefix == "" {
			return errors.New("string value without key")
		}
		out[prefix] = v
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
}

// Render executes the template stored under key. Missing keys and missing
// fields are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	key = strings.TrimSpace(key)
	c.mu.RLock()
	t, ok := c.parsed[key]
	src, found := c.data[key]
	c.mu.RUnlock()

	if !ok {
		if !found || strings.TrimSpace(src) == "" {
			return "", fmt.Errorf("message not found: %s", key)
		}
		var err error
		t, err = template.New(key).Option("missingkey=error").Parse(src)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.parsed[key] = t
		c.mu.Unlock()
	}

	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text is Render for display code: on any error it returns the key.
func (c *Catalog) Text(key string, data any) string {
	s, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return s
}
