// Package sitemap enumerates the indexable URL space and renders it as
// sitemaps.org XML.
package sitemap

import (
	"strings"

	"github.com/jessedrg/cbd-boutique/internal/catalog"
	"github.com/jessedrg/cbd-boutique/internal/seoindex"
)

// Change frequencies used by the generators.
const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
)

// Entry is one sitemap URL.
type Entry struct {
	URL        string        `json:"url"`
	Priority   float64       `json:"priority"`
	Tier       seoindex.Tier `json:"tier"`
	ChangeFreq string        `json:"changefreq"`
}

// Enumerator walks the locale x category x intent x city space and keeps the
// pages the engine indexes.
type Enumerator struct {
	cat     *catalog.Catalog
	engine  *seoindex.Engine
	baseURL string
}

// NewEnumerator returns an enumerator emitting absolute URLs under baseURL.
func NewEnumerator(cat *catalog.Catalog, engine *seoindex.Engine, baseURL string) *Enumerator {
	return &Enumerator{cat: cat, engine: engine, baseURL: strings.TrimRight(baseURL, "/")}
}

// BaseURL is the site origin without a trailing slash.
func (e *Enumerator) BaseURL() string { return e.baseURL }

// CategoryURL is the pure category landing page.
func (e *Enumerator) CategoryURL(locale, category string) string {
	return e.baseURL + "/" + locale + "/" + e.cat.CategorySlug(locale, category)
}

// IntentURL is the intent+category landing page, or "" if the intent has no
// translation for locale.
func (e *Enumerator) IntentURL(locale, intent, category string) string {
	slug := e.cat.IntentSlug(locale, intent)
	if slug == "" {
		return ""
	}
	return e.baseURL + "/" + locale + "/" + slug + "-" + e.cat.CategorySlug(locale, category)
}

// CityURL is the category+city landing page.
func (e *Enumerator) CityURL(locale, category, citySlug string) string {
	return e.CategoryURL(locale, category) + "-" + citySlug
}

// TripleURL is the intent+category+city landing page.
func (e *Enumerator) TripleURL(locale, intent, category, citySlug string) string {
	u := e.IntentURL(locale, intent, category)
	if u == "" {
		return ""
	}
	return u + "-" + citySlug
}

// IndexableURLs returns every indexable landing page for locale, in catalog
// order. Unsupported locales yield nil.
func (e *Enumerator) IndexableURLs(locale string) []Entry {
	if !e.cat.HasLocale(locale) {
		return nil
	}
	var out []Entry
	add := func(url string, s seoindex.Signals) {
		if url == "" {
			return
		}
		d := e.engine.Decide(s)
		if !d.Index {
			return
		}
		out = append(out, Entry{URL: url, Priority: d.Priority, Tier: d.Tier, ChangeFreq: Weekly})
	}

	for _, cat := range e.cat.Categories {
		add(e.CategoryURL(locale, cat), seoindex.Signals{Locale: locale, Category: cat})
	}

	// Only indexed intents can produce sitemap entries; the rest are audit-only.
	for _, intent := range e.engine.Policy().IndexedIntents {
		for _, cat := range e.cat.Categories {
			add(e.IntentURL(locale, intent, cat), seoindex.Signals{Locale: locale, Category: cat, Intent: intent})
		}
	}

	for _, c := range e.cat.LocaleCities(locale) {
		city := CitySignal(c)
		for _, cat := range e.cat.Categories {
			add(e.CityURL(locale, cat, c.Slug), seoindex.Signals{Locale: locale, Category: cat, City: &city})
		}
	}
	return out
}

// StaticPages lists the hand-built pages: home, locale homes, about/contact
// and the product landing pages for indexed product types.
func (e *Enumerator) StaticPages() []Entry {
	locales := e.cat.LocaleCodes()
	out := []Entry{{URL: e.baseURL, Priority: 1.0, Tier: seoindex.Tier1, ChangeFreq: Daily}}
	for _, l := range locales {
		out = append(out, Entry{URL: e.baseURL + "/" + l, Priority: 1.0, Tier: seoindex.Tier1, ChangeFreq: Daily})
	}
	for _, l := range locales {
		for _, page := range []string{"about", "contact"} {
			out = append(out, Entry{URL: e.baseURL + "/" + l + "/" + page, Priority: 0.5, Tier: seoindex.Tier1, ChangeFreq: Monthly})
		}
	}
	for _, page := range []string{"about", "contact"} {
		out = append(out, Entry{URL: e.baseURL + "/" + page, Priority: 0.4, Tier: seoindex.Tier1, ChangeFreq: Monthly})
	}
	for _, l := range locales {
		for _, t := range e.engine.Policy().ProductTypes {
			out = append(out, Entry{URL: e.ProductURL(l, t), Priority: 0.8, Tier: seoindex.Tier1, ChangeFreq: Weekly})
		}
	}
	return out
}

// ProductURL is the product landing page for a product type.
func (e *Enumerator) ProductURL(locale, productType string) string {
	return e.baseURL + "/" + locale + "/productos/" + productType
}

// IndexLocations lists the child sitemaps referenced from /sitemap.xml.
func (e *Enumerator) IndexLocations() []string {
	out := []string{e.baseURL + "/sitemaps/pages.xml"}
	for _, l := range e.cat.LocaleCodes() {
		out = append(out, e.baseURL+"/sitemaps/"+l+".xml")
	}
	return out
}

// CitySignal converts a catalog row into the engine's city signal.
func CitySignal(c catalog.City) seoindex.City {
	return seoindex.City{Name: c.Name, Slug: c.Slug, Population: c.Population, Country: c.Country}
}
