// Package slugparse detects the category, search intent and city embedded in
// a landing page slug.
//
// Detection is substring based and best effort. Each axis is resolved
// independently and the first match in catalog declaration order wins; there
// is no scoring or backtracking.
package slugparse

import (
	"strings"

	"github.com/jessedrg/cbd-boutique/internal/catalog"
	"github.com/jessedrg/cbd-boutique/internal/seoindex"
)

// Result is the detected triple. Empty strings and a nil City mean no match.
type Result struct {
	Category string         `json:"category,omitempty"`
	Intent   string         `json:"intent,omitempty"`
	City     *seoindex.City `json:"city,omitempty"`
}

// Signals converts the result into engine input for locale.
func (r Result) Signals(locale string) seoindex.Signals {
	return seoindex.Signals{Locale: locale, Category: r.Category, Intent: r.Intent, City: r.City}
}

// Parser matches slugs against a catalog.
type Parser struct {
	cat *catalog.Catalog
}

// New returns a parser over cat.
func New(cat *catalog.Catalog) *Parser {
	return &Parser{cat: cat}
}

// Parse inspects the joined path segments. Unsupported locales are parsed
// with the catalog's default locale.
func (p *Parser) Parse(parts []string, locale string) Result {
	locale = p.cat.ResolveLocale(locale)
	full := strings.ToLower(strings.Join(parts, "-"))
	if full == "" {
		return Result{}
	}
	return Result{
		Category: p.category(full, locale),
		Intent:   p.intent(full, locale),
		City:     p.city(full, locale),
	}
}

// ParsePath splits a URL path on '/' and parses the non-empty segments.
func (p *Parser) ParsePath(path, locale string) Result {
	return p.Parse(Segments(path), locale)
}

// Segments splits a path into its non-empty parts.
func Segments(path string) []string {
	raw := strings.Split(path, "/")
	out := raw[:0]
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p *Parser) category(full, locale string) string {
	for _, cat := range p.cat.Categories {
		translated := p.cat.CategorySlug(locale, cat)
		if strings.Contains(full, translated) || strings.Contains(full, cat) {
			return cat
		}
	}
	return ""
}

func (p *Parser) intent(full, locale string) string {
	for _, intent := range p.cat.Intents {
		slug := p.cat.IntentSlug(locale, intent)
		if slug == "" {
			continue
		}
		if strings.HasPrefix(full, slug) || strings.Contains(full, "-"+slug+"-") {
			return intent
		}
	}
	return ""
}

func (p *Parser) city(full, locale string) *seoindex.City {
	for _, c := range p.cat.LocaleCities(locale) {
		if strings.Contains(full, c.Slug) {
			return &seoindex.City{Name: c.Name, Slug: c.Slug, Population: c.Population, Country: c.Country}
		}
	}
	return nil
}
