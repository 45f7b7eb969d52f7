// Package pages builds the head metadata of localized pages: robots meta,
// canonical URL, title, description and structured data, all derived from
// the index decision for the page.
package pages

import (
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jessedrg/cbd-boutique/internal/catalog"
	"github.com/jessedrg/cbd-boutique/internal/seoindex"
	"github.com/jessedrg/cbd-boutique/internal/sitemap"
	"github.com/jessedrg/cbd-boutique/internal/slugparse"
)

// ErrNotFound is returned for paths that have no page, such as an unknown
// product type.
var ErrNotFound = errors.New("page not found")

// Page kinds.
const (
	KindHome    = "home"
	KindStatic  = "static"
	KindProduct = "product"
	KindLanding = "landing"
)

// Robots meta values.
const (
	RobotsIndex   = "index, follow"
	RobotsNoIndex = "noindex, follow"
)

// ProductPrefix is the path segment under which product landings live.
const ProductPrefix = "productos"

// Head is the computed metadata of one page.
type Head struct {
	Locale      string            `json:"locale"`
	Path        string            `json:"path"`
	Kind        string            `json:"kind"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Robots      string            `json:"robots"`
	Canonical   string            `json:"canonical"`
	OGLocale    string            `json:"ogLocale"`
	Signals     seoindex.Signals  `json:"signals"`
	Decision    seoindex.Decision `json:"decision"`
	JSONLD      CollectionPage    `json:"jsonLd"`
	Variants    []string          `json:"variants,omitempty"`
}

// DefaultCacheSize bounds the classification cache when none is configured.
const DefaultCacheSize = 4096

// Classifier computes Heads and remembers recent ones.
type Classifier struct {
	cat    *catalog.Catalog
	engine *seoindex.Engine
	parser *slugparse.Parser
	urls   *sitemap.Enumerator
	cache  *lru.Cache[string, Head]
}

// NewClassifier returns a classifier caching up to cacheSize heads. A
// non-positive size uses DefaultCacheSize.
func NewClassifier(cat *catalog.Catalog, engine *seoindex.Engine, baseURL string, cacheSize int) (*Classifier, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, Head](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}
	return &Classifier{
		cat:    cat,
		engine: engine,
		parser: slugparse.New(cat),
		urls:   sitemap.NewEnumerator(cat, engine, baseURL),
		cache:  cache,
	}, nil
}

// CacheLen is the number of cached heads.
func (c *Classifier) CacheLen() int { return c.cache.Len() }

// Classify computes the head for path (the part after the locale segment).
// Paths are matched case-insensitively and heads always carry the lower-case
// path. Unsupported locales are served as the default locale.
func (c *Classifier) Classify(locale, path string) (Head, error) {
	locale = c.cat.ResolveLocale(locale)
	segs := slugparse.Segments(strings.ToLower(path))
	key := locale + "|" + strings.Join(segs, "/")
	if h, ok := c.cache.Get(key); ok {
		return h, nil
	}
	h, err := c.classify(locale, segs)
	if err != nil {
		return Head{}, err
	}
	c.cache.Add(key, h)
	return h, nil
}

// ClassifyPath classifies a full request path. A first segment that is not a
// supported locale is read as a path under the default locale.
func (c *Classifier) ClassifyPath(path string) (Head, error) {
	segs := slugparse.Segments(path)
	if len(segs) > 0 && c.cat.HasLocale(strings.ToLower(segs[0])) {
		return c.Classify(segs[0], strings.Join(segs[1:], "/"))
	}
	return c.Classify(c.cat.DefaultLocale, strings.Join(segs, "/"))
}

func (c *Classifier) classify(locale string, segs []string) (Head, error) {
	base := c.urls.BaseURL()
	h := Head{
		Locale:    locale,
		Path:      "/" + strings.Join(append([]string{locale}, segs...), "/"),
		OGLocale:  OGLocale(locale),
		Signals:   seoindex.Signals{Locale: locale},
		Canonical: base + "/" + strings.Join(append([]string{locale}, segs...), "/"),
	}

	switch {
	case len(segs) == 0:
		h.Kind = KindHome
		h.Title = SiteName
		h.Description = description(locale, "", "")
		h.Decision = staticDecision("Locale homepage", 1.0)
	case len(segs) == 1 && (segs[0] == "about" || segs[0] == "contact"):
		h.Kind = KindStatic
		h.Title = capitalize(segs[0]) + " | " + SiteName
		h.Description = description(locale, "", "")
		h.Decision = staticDecision(fmt.Sprintf("Static %s page", segs[0]), 0.5)
	case segs[0] == ProductPrefix:
		if len(segs) != 2 || !c.engine.Policy().IsProductType(segs[1]) || !c.cat.HasCategory(segs[1]) {
			return Head{}, fmt.Errorf("%w: product type %q", ErrNotFound, strings.Join(segs[1:], "/"))
		}
		name := c.cat.CategoryName(locale, segs[1])
		h.Kind = KindProduct
		h.Signals.Category = segs[1]
		h.Title = capitalize(name)
		h.Description = description(locale, name, "")
		h.Decision = staticDecision("Rich product landing page", 0.8)
		h.Variants = c.cat.Variants(segs[1])
	default:
		res := c.parser.Parse(segs, locale)
		h.Kind = KindLanding
		h.Signals = res.Signals(locale)
		h.Decision = c.engine.Decide(h.Signals)
		h.Title = c.title(locale, res)
		cityText := ""
		if res.City != nil {
			cityText = " " + c.cat.Preposition(locale) + " " + res.City.Name
		}
		catName := ""
		if res.Category != "" {
			catName = c.cat.CategoryName(locale, res.Category)
		}
		h.Description = description(locale, catName, cityText)
		h.Variants = c.cat.Variants(res.Category)
		if h.Decision.Rule == seoindex.RuleDuplicateIntent {
			h.Canonical = c.urls.CategoryURL(locale, res.Category)
		}
	}

	h.Robots = RobotsNoIndex
	if h.Decision.Index {
		h.Robots = RobotsIndex
	}
	h.JSONLD = c.structuredData(h, base)
	return h, nil
}

func (c *Classifier) title(locale string, res slugparse.Result) string {
	var b strings.Builder
	if res.Intent != "" {
		if name := c.cat.IntentName(locale, res.Intent); name != "" {
			b.WriteString(capitalize(name))
			b.WriteByte(' ')
		}
	}
	if res.Category != "" {
		b.WriteString(capitalize(c.cat.CategoryName(locale, res.Category)))
	}
	if res.City != nil {
		b.WriteString(" " + c.cat.Preposition(locale) + " " + res.City.Name)
	}
	title := strings.TrimSpace(b.String())
	if title == "" {
		return FallbackTitle
	}
	return title
}

func (c *Classifier) structuredData(h Head, base string) CollectionPage {
	crumbs := []ListItem{{Position: 1, Name: SiteName, Item: base + "/" + h.Locale}}
	if h.Signals.Category != "" && h.Kind == KindLanding {
		crumbs = append(crumbs, ListItem{
			Position: 2,
			Name:     capitalize(c.cat.CategoryName(h.Locale, h.Signals.Category)),
			Item:     c.urls.CategoryURL(h.Locale, h.Signals.Category),
		})
	}
	if h.Kind != KindHome && crumbs[len(crumbs)-1].Item != h.Canonical {
		crumbs = append(crumbs, ListItem{Position: len(crumbs) + 1, Name: h.Title, Item: h.Canonical})
	}
	return newCollectionPage(h.Title, h.Description, h.Canonical, h.Locale, crumbs)
}

func staticDecision(reason string, priority float64) seoindex.Decision {
	return seoindex.Decision{Index: true, Tier: seoindex.Tier1, Reason: reason, Priority: priority, Rule: "static"}
}
