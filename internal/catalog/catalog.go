// Package catalog holds the static reference data behind the programmatic
// landing pages: locales, countries, cities, categories, search intents and
// their translated slugs.
//
// A Catalog is immutable once loaded. Callers receive it by pointer and share
// it across goroutines without locking.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Locale is a supported site language and the countries it serves.
type Locale struct {
	Code        string   `yaml:"code" json:"code"`
	Name        string   `yaml:"name" json:"name"`
	Preposition string   `yaml:"preposition" json:"preposition"`
	Countries   []string `yaml:"countries" json:"countries"`
}

// City is a reference city row. Country is filled from the map key on load.
type City struct {
	Name       string `yaml:"name" json:"name"`
	Slug       string `yaml:"slug" json:"slug"`
	Population int    `yaml:"population" json:"population"`
	Country    string `yaml:"-" json:"country"`
}

// Catalog is the full reference dataset.
type Catalog struct {
	DefaultLocale string                       `yaml:"default_locale"`
	Locales       []Locale                     `yaml:"locales"`
	Categories    []string                     `yaml:"categories"`
	Intents       []string                     `yaml:"intents"`
	ProductTypes  map[string][]string          `yaml:"product_types"`
	CategoryNames map[string]map[string]string `yaml:"category_names"`
	IntentNames   map[string]map[string]string `yaml:"intent_names"`
	Cities        map[string][]City            `yaml:"cities"`

	localeIdx   map[string]int
	categorySet map[string]struct{}
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which is a build defect rather than a runtime condition.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(defaultYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded data invalid: %v", defaultErr))
	}
	return defaultCat
}

// Load reads a catalog from a YAML file. An empty path returns Default().
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) init() error {
	if len(c.Locales) == 0 {
		return errors.New("no locales defined")
	}
	if len(c.Categories) == 0 {
		return errors.New("no categories defined")
	}
	c.localeIdx = make(map[string]int, len(c.Locales))
	for i, l := range c.Locales {
		code := strings.ToLower(strings.TrimSpace(l.Code))
		if code == "" {
			return fmt.Errorf("locale #%d has no code", i)
		}
		if _, dup := c.localeIdx[code]; dup {
			return fmt.Errorf("duplicate locale %q", code)
		}
		c.Locales[i].Code = code
		c.localeIdx[code] = i
	}
	if c.DefaultLocale == "" {
		c.DefaultLocale = c.Locales[0].Code
	}
	if _, ok := c.localeIdx[c.DefaultLocale]; !ok {
		return fmt.Errorf("default locale %q is not a defined locale", c.DefaultLocale)
	}
	if _, ok := c.CategoryNames[c.DefaultLocale]; !ok {
		return fmt.Errorf("no category names for default locale %q", c.DefaultLocale)
	}

	c.categorySet = make(map[string]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		if _, dup := c.categorySet[cat]; dup {
			return fmt.Errorf("duplicate category %q", cat)
		}
		c.categorySet[cat] = struct{}{}
		if c.CategoryNames[c.DefaultLocale][cat] == "" {
			return fmt.Errorf("category %q has no %s name", cat, c.DefaultLocale)
		}
	}

	for country, cities := range c.Cities {
		for i := range cities {
			if cities[i].Slug == "" {
				return fmt.Errorf("city #%d in %s has no slug", i, country)
			}
			cities[i].Country = country
		}
	}
	return nil
}

// HasLocale reports whether code is a supported locale.
func (c *Catalog) HasLocale(code string) bool {
	_, ok := c.localeIdx[code]
	return ok
}

// ResolveLocale returns code when supported and the default locale otherwise.
func (c *Catalog) ResolveLocale(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if c.HasLocale(code) {
		return code
	}
	return c.DefaultLocale
}

// Locale looks up a locale by code.
func (c *Catalog) Locale(code string) (Locale, bool) {
	i, ok := c.localeIdx[code]
	if !ok {
		return Locale{}, false
	}
	return c.Locales[i], true
}

// LocaleCodes returns the supported codes in declaration order.
func (c *Catalog) LocaleCodes() []string {
	out := make([]string, 0, len(c.Locales))
	for _, l := range c.Locales {
		out = append(out, l.Code)
	}
	return out
}

// HasCategory reports whether cat is a known category key.
func (c *Catalog) HasCategory(cat string) bool {
	_, ok := c.categorySet[cat]
	return ok
}

// CategoryName is the translated category name, falling back to the default
// locale and then to the key itself.
func (c *Catalog) CategoryName(locale, cat string) string {
	return lookup(c.CategoryNames, locale, c.DefaultLocale, cat)
}

// IntentName is the translated intent keyword. Missing translations return "".
func (c *Catalog) IntentName(locale, intent string) string {
	if names, ok := c.IntentNames[locale]; ok {
		return names[intent]
	}
	return c.IntentNames[c.DefaultLocale][intent]
}

// CategorySlug is the URL form of the translated category name.
func (c *Catalog) CategorySlug(locale, cat string) string {
	return Slugify(c.CategoryName(locale, cat))
}

// IntentSlug is the URL form of the translated intent, or "" when untranslated.
func (c *Catalog) IntentSlug(locale, intent string) string {
	return Slugify(c.IntentName(locale, intent))
}

// Preposition returns the locale's word for "in".
func (c *Catalog) Preposition(locale string) string {
	if l, ok := c.Locale(locale); ok && l.Preposition != "" {
		return l.Preposition
	}
	return "in"
}

// CitiesOf returns a copy of the cities of a country in declaration order.
func (c *Catalog) CitiesOf(country string) []City {
	return slices.Clone(c.Cities[country])
}

// Variants returns a copy of the product variants listed for a category.
func (c *Catalog) Variants(category string) []string {
	return slices.Clone(c.ProductTypes[category])
}

// LocaleCities returns every city served by a locale, country by country in
// the locale's declared order.
func (c *Catalog) LocaleCities(locale string) []City {
	l, ok := c.Locale(locale)
	if !ok {
		return nil
	}
	var out []City
	for _, country := range l.Countries {
		out = append(out, c.Cities[country]...)
	}
	return out
}

// Slugify lower-cases a translated name and joins its words with '-'.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

func lookup(tbl map[string]map[string]string, locale, fallback, key string) string {
	if names, ok := tbl[locale]; ok {
		if v := names[key]; v != "" {
			return v
		}
	}
	if v := tbl[fallback][key]; v != "" {
		return v
	}
	return key
}
