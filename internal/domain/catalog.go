package domain

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// SummaryStyle selects the instruction template sent with every page.
type SummaryStyle string

// DefaultThemeKey is used when a request names no theme.
const DefaultThemeKey = "default"

// StyleDefinition is one entry of the summary style menu.
type StyleDefinition struct {
	Key         SummaryStyle `yaml:"key" json:"key"`
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description" json:"description"`
	Prompt      string       `yaml:"prompt" json:"-"`
}

// RGB is a color with 0-255 channels.
type RGB struct {
	R, G, B int
}

// UnmarshalYAML reads a color written as a three element list.
func (c *RGB) UnmarshalYAML(node *yaml.Node) error {
	var parts []int
	if err := node.Decode(&parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("color at line %d: expected 3 channels, got %d", node.Line, len(parts))
	}
	for _, p := range parts {
		if p < 0 || p > 255 {
			return fmt.Errorf("color at line %d: channel %d out of range", node.Line, p)
		}
	}
	c.R, c.G, c.B = parts[0], parts[1], parts[2]
	return nil
}

// MarshalJSON writes the color as [r,g,b].
func (c RGB) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%d,%d,%d]", c.R, c.G, c.B)), nil
}

// Theme is a named color palette for the rendered report.
type Theme struct {
	Key        string `yaml:"key" json:"key"`
	Name       string `yaml:"name" json:"name"`
	Background RGB    `yaml:"background" json:"background"`
	Text       RGB    `yaml:"text" json:"text"`
	Header     RGB    `yaml:"header" json:"header"`
	Line       RGB    `yaml:"line" json:"line"`
	Accent     RGB    `yaml:"accent" json:"accent"`
	Secondary  RGB    `yaml:"secondary" json:"secondary"`
}

//go:embed catalog/styles.yaml
var stylesYAML []byte

//go:embed catalog/themes.yaml
var themesYAML []byte

type catalog struct {
	styles      []StyleDefinition
	stylesByKey map[SummaryStyle]StyleDefinition
	themes      []Theme
	themesByKey map[string]Theme
}

var (
	catalogOnce   sync.Once
	loadedCatalog *catalog
)

func defaultCatalog() *catalog {
	catalogOnce.Do(func() {
		c, err := parseCatalog(stylesYAML, themesYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
		}
		loadedCatalog = c
	})
	return loadedCatalog
}

func parseCatalog(stylesData, themesData []byte) (*catalog, error) {
	var styleFile struct {
		Styles []StyleDefinition `yaml:"styles"`
	}
	if err := yaml.Unmarshal(stylesData, &styleFile); err != nil {
		return nil, fmt.Errorf("parse styles: %w", err)
	}
	var themeFile struct {
		Themes []Theme `yaml:"themes"`
	}
	if err := yaml.Unmarshal(themesData, &themeFile); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}

	c := &catalog{
		styles:      styleFile.Styles,
		stylesByKey: make(map[SummaryStyle]StyleDefinition, len(styleFile.Styles)),
		themes:      themeFile.Themes,
		themesByKey: make(map[string]Theme, len(themeFile.Themes)),
	}
	for _, s := range c.styles {
		if s.Key == "" || s.Prompt == "" {
			return nil, fmt.Errorf("style %q needs a key and a prompt", s.Key)
		}
		if _, dup := c.stylesByKey[s.Key]; dup {
			return nil, fmt.Errorf("duplicate style %q", s.Key)
		}
		c.stylesByKey[s.Key] = s
	}
	for _, t := range c.themes {
		if t.Key == "" {
			return nil, fmt.Errorf("theme without key")
		}
		if _, dup := c.themesByKey[t.Key]; dup {
			return nil, fmt.Errorf("duplicate theme %q", t.Key)
		}
		c.themesByKey[t.Key] = t
	}
	if _, ok := c.themesByKey[DefaultThemeKey]; !ok {
		return nil, fmt.Errorf("theme %q is required", DefaultThemeKey)
	}
	return c, nil
}

// Styles returns the style menu in display order.
func Styles() []StyleDefinition {
	src := defaultCatalog().styles
	out := make([]StyleDefinition, len(src))
	copy(out, src)
	return out
}

// LookupStyle finds a style by key.
func LookupStyle(key SummaryStyle) (StyleDefinition, bool) {
	s, ok := defaultCatalog().stylesByKey[key]
	return s, ok
}

// Themes returns the theme menu in display order.
func Themes() []Theme {
	src := defaultCatalog().themes
	out := make([]Theme, len(src))
	copy(out, src)
	return out
}

// LookupTheme finds a theme by key.
func LookupTheme(key string) (Theme, bool) {
	t, ok := defaultCatalog().themesByKey[key]
	return t, ok
}

// ResolveTheme returns the named theme, or the default one when key is nil or empty.
func ResolveTheme(key *string) (Theme, error) {
	if key == nil || *key == "" {
		t, _ := LookupTheme(DefaultThemeKey)
		return t, nil
	}
	t, ok := LookupTheme(*key)
	if !ok {
		return Theme{}, &ValidationError{Field: "theme", Message: fmt.Sprintf("unknown theme %q", *key)}
	}
	return t, nil
}
