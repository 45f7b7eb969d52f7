// Package audit classifies the whole landing page cross-product and reports
// which URLs are indexed and why.
package audit

import (
	"fmt"
	"strings"

	"github.com/jessedrg/cbd-boutique/internal/catalog"
	"github.com/jessedrg/cbd-boutique/internal/seoindex"
	"github.com/jessedrg/cbd-boutique/internal/sitemap"
)

// Page types reported in Entry.Type.
const (
	TypeHomepage       = "homepage"
	TypeStatic         = "static"
	TypeProductLanding = "product-landing"
	TypeCategory       = "category"
	TypeIntentCategory = "intent+category"
	TypeCategoryCity   = "category+city"
	TypeTriple         = "intent+category+city"
)

// Entry is one classified URL.
type Entry struct {
	URL      string        `json:"url"`
	Locale   string        `json:"locale"`
	Type     string        `json:"type"`
	Index    bool          `json:"index"`
	Tier     seoindex.Tier `json:"tier"`
	Reason   string        `json:"reason"`
	Priority float64       `json:"priority"`
}

// Options tune the cross-product.
type Options struct {
	// Triples adds every intent+category+city URL. These are never indexed and
	// multiply the row count by the number of intents.
	Triples bool
}

// Builder enumerates and classifies every landing page.
type Builder struct {
	cat    *catalog.Catalog
	engine *seoindex.Engine
	urls   *sitemap.Enumerator
}

// NewBuilder returns a builder emitting URLs under baseURL.
func NewBuilder(cat *catalog.Catalog, engine *seoindex.Engine, baseURL string) *Builder {
	return &Builder{cat: cat, engine: engine, urls: sitemap.NewEnumerator(cat, engine, baseURL)}
}

// BaseURL is the site origin the entries are built under.
func (b *Builder) BaseURL() string { return b.urls.BaseURL() }

// Policy is the policy the engine evaluates against.
func (b *Builder) Policy() seoindex.Policy { return b.engine.Policy() }

// Build classifies every page of every locale in catalog order.
func (b *Builder) Build(opts Options) []Entry {
	var out []Entry
	for _, locale := range b.cat.LocaleCodes() {
		out = append(out, b.Locale(locale, opts)...)
	}
	return out
}

// Locale classifies the pages of one locale. Unsupported locales yield nil.
func (b *Builder) Locale(locale string, opts Options) []Entry {
	if !b.cat.HasLocale(locale) {
		return nil
	}
	base := b.urls.BaseURL()
	policy := b.engine.Policy()

	out := []Entry{{
		URL: base + "/" + locale, Locale: locale, Type: TypeHomepage,
		Index: true, Tier: seoindex.Tier1, Reason: "Locale homepage", Priority: 1.0,
	}}
	for _, page := range []string{"about", "contact"} {
		out = append(out, Entry{
			URL: base + "/" + locale + "/" + page, Locale: locale, Type: TypeStatic,
			Index: true, Tier: seoindex.Tier1, Reason: fmt.Sprintf("Static %s page", page), Priority: 0.5,
		})
	}
	for _, t := range policy.ProductTypes {
		out = append(out, Entry{
			URL: b.urls.ProductURL(locale, t), Locale: locale, Type: TypeProductLanding,
			Index: true, Tier: seoindex.Tier1, Reason: "Rich product landing page", Priority: 0.8,
		})
	}

	add := func(url, typ string, s seoindex.Signals) {
		if url == "" {
			return
		}
		d := b.engine.Decide(s)
		out = append(out, Entry{
			URL: url, Locale: locale, Type: typ,
			Index: d.Index, Tier: d.Tier, Reason: d.Reason, Priority: d.Priority,
		})
	}

	for _, cat := range b.cat.Categories {
		add(b.urls.CategoryURL(locale, cat), TypeCategory, seoindex.Signals{Locale: locale, Category: cat})
	}
	for _, intent := range b.cat.Intents {
		for _, cat := range b.cat.Categories {
			add(b.urls.IntentURL(locale, intent, cat), TypeIntentCategory,
				seoindex.Signals{Locale: locale, Category: cat, Intent: intent})
		}
	}
	cities := b.cat.LocaleCities(locale)
	for _, c := range cities {
		city := sitemap.CitySignal(c)
		for _, cat := range b.cat.Categories {
			add(b.urls.CityURL(locale, cat, c.Slug), TypeCategoryCity,
				seoindex.Signals{Locale: locale, Category: cat, City: &city})
		}
	}
	if opts.Triples {
		for _, intent := range b.cat.Intents {
			for _, c := range cities {
				city := sitemap.CitySignal(c)
				for _, cat := range b.cat.Categories {
					add(b.urls.TripleURL(locale, intent, cat, c.Slug), TypeTriple,
						seoindex.Signals{Locale: locale, Category: cat, Intent: intent, City: &city})
				}
			}
		}
	}
	return out
}

// Filter selects indexed or noindexed entries. The zero value keeps all.
type Filter string

const (
	FilterAll     Filter = ""
	FilterIndex   Filter = "index"
	FilterNoIndex Filter = "noindex"
)

// ParseFilter accepts "", "all", "index" and "noindex".
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "index":
		return FilterIndex, nil
	case "noindex":
		return FilterNoIndex, nil
	default:
		return "", fmt.Errorf("unknown filter %q (want index or noindex)", s)
	}
}

// Label is the filter's name in download file names.
func (f Filter) Label() string {
	if f == FilterAll {
		return "all"
	}
	return string(f)
}

// Apply returns the entries matching f. FilterAll returns entries unchanged.
func (f Filter) Apply(entries []Entry) []Entry {
	if f == FilterAll {
		return entries
	}
	want := f == FilterIndex
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Index == want {
			out = append(out, e)
		}
	}
	return out
}
