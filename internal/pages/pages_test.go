package pages

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jessedrg/cbd-boutique/internal/catalog"
	"github.com/jessedrg/cbd-boutique/internal/seoindex"
)

const base = "https://cbdboutique.io"

func newTestClassifier(t *testing.T, size int) *Classifier {
	t.Helper()
	cat := catalog.Default()
	c, err := NewClassifier(cat, seoindex.New(seoindex.DefaultPolicy(), cat.Categories), base, size)
	require.NoError(t, err)
	return c
}

func TestClassifyLandingPages(t *testing.T) {
	c := newTestClassifier(t, 0)

	tests := []struct {
		name      string
		locale    string
		path      string
		title     string
		robots    string
		canonical string
		rule      string
	}{
		{"category", "es", "aceite-cbd", "Aceite cbd", RobotsIndex, base + "/es/aceite-cbd", seoindex.RuleCategoryPage},
		{"buy intent", "es", "/comprar-aceite-cbd", "Comprar Aceite cbd", RobotsIndex, base + "/es/comprar-aceite-cbd", seoindex.RuleIndexedIntent},
		{"duplicate intent canonicalizes to category", "es", "barato-aceite-cbd", "Barato Aceite cbd", RobotsNoIndex, base + "/es/aceite-cbd", seoindex.RuleDuplicateIntent},
		{"major city", "es", "aceite-cbd-madrid", "Aceite cbd en Madrid", RobotsIndex, base + "/es/aceite-cbd-madrid", seoindex.RuleCategoryCity},
		{"small city", "es", "aceite-cbd-ibiza", "Aceite cbd en Ibiza", RobotsNoIndex, base + "/es/aceite-cbd-ibiza", seoindex.RuleCategoryCity},
		{"triple", "en", "cheap-cbd-oil-london", "Cheap Cbd oil in London", RobotsNoIndex, base + "/en/cheap-cbd-oil-london", seoindex.RuleTripleCombo},
		{"nothing detected", "en", "hello-world", FallbackTitle, RobotsNoIndex, base + "/en/hello-world", seoindex.RuleNoCategory},
		{"unsupported locale", "ru", "cbd-oil", "Cbd oil", RobotsIndex, base + "/en/cbd-oil", seoindex.RuleCategoryPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := c.Classify(tt.locale, tt.path)
			require.NoError(t, err)
			assert.Equal(t, KindLanding, h.Kind)
			assert.Equal(t, tt.title, h.Title)
			assert.Equal(t, tt.robots, h.Robots)
			assert.Equal(t, tt.canonical, h.Canonical)
			assert.Equal(t, tt.rule, h.Decision.Rule)
		})
	}
}

func TestClassifyStaticAndProducts(t *testing.T) {
	c := newTestClassifier(t, 0)

	home, err := c.Classify("de", "")
	require.NoError(t, err)
	assert.Equal(t, KindHome, home.Kind)
	assert.Equal(t, RobotsIndex, home.Robots)
	assert.Equal(t, base+"/de", home.Canonical)
	assert.Equal(t, "de_DE", home.OGLocale)

	about, err := c.Classify("en", "about")
	require.NoError(t, err)
	assert.Equal(t, KindStatic, about.Kind)
	assert.Equal(t, 0.5, about.Decision.Priority)

	prod, err := c.Classify("es", "productos/cbd-oil")
	require.NoError(t, err)
	assert.Equal(t, KindProduct, prod.Kind)
	assert.Equal(t, "Aceite cbd", prod.Title)
	assert.Equal(t, 0.8, prod.Decision.Priority)

	for _, p := range []string{"productos/cbd-pets", "productos/nope", "productos", "productos/cbd-oil/extra"} {
		_, err := c.Classify("es", p)
		assert.True(t, errors.Is(err, ErrNotFound), p)
	}
}

func TestDescriptionAndOGLocale(t *testing.T) {
	c := newTestClassifier(t, 0)
	h, err := c.Classify("en", "cbd-oil-london")
	require.NoError(t, err)
	assert.Contains(t, h.Description, "Buy cbd oil in London of the highest quality")

	h, err = c.Classify("en", "hello")
	require.NoError(t, err)
	assert.Contains(t, h.Description, "Buy CBD of the highest quality")

	assert.Equal(t, "es_ES", OGLocale("es"))
	assert.Equal(t, "en_US", OGLocale("en"))
	assert.Equal(t, "el_EL", OGLocale("el"))
}

func TestStructuredData(t *testing.T) {
	c := newTestClassifier(t, 0)
	h, err := c.Classify("es", "aceite-cbd-madrid")
	require.NoError(t, err)

	ld := h.JSONLD
	assert.Equal(t, "CollectionPage", ld.Type)
	require.Len(t, ld.Breadcrumb.Items, 3)
	assert.Equal(t, base+"/es", ld.Breadcrumb.Items[0].Item)
	assert.Equal(t, base+"/es/aceite-cbd", ld.Breadcrumb.Items[1].Item)
	assert.Equal(t, 3, ld.Breadcrumb.Items[2].Position)

	cat, err := c.Classify("es", "aceite-cbd")
	require.NoError(t, err)
	assert.Len(t, cat.JSONLD.Breadcrumb.Items, 2, "category page is its own last crumb")

	raw, err := json.Marshal(ld)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"@context":"https://schema.org"`)
	assert.Contains(t, string(raw), `"@type":"ListItem"`)
}

func TestClassifyCaches(t *testing.T) {
	c := newTestClassifier(t, 2)

	_, err := c.Classify("es", "aceite-cbd")
	require.NoError(t, err)
	_, err = c.Classify("es", "/Aceite-CBD/")
	require.NoError(t, err)
	assert.Equal(t, 1, c.CacheLen(), "normalized paths share a cache entry")

	_, _ = c.Classify("es", "flores-cbd")
	_, _ = c.Classify("es", "vape-cbd")
	assert.Equal(t, 2, c.CacheLen(), "cache is bounded")

	_, err = c.Classify("es", "productos/nope")
	require.Error(t, err)
	assert.Equal(t, 2, c.CacheLen())
}

func TestClassifyCaseDoesNotLeakThroughCache(t *testing.T) {
	for _, order := range [][]string{
		{"Aceite-CBD-Madrid", "aceite-cbd-madrid"},
		{"aceite-cbd-madrid", "Aceite-CBD-Madrid"},
	} {
		c := newTestClassifier(t, 0)
		for _, p := range order {
			h, err := c.Classify("es", p)
			require.NoError(t, err, p)
			assert.Equal(t, base+"/es/aceite-cbd-madrid", h.Canonical, p)
			assert.Equal(t, "/es/aceite-cbd-madrid", h.Path, p)
		}
	}

	for _, order := range [][]string{
		{"/es/productos/CBD-OIL", "/es/productos/cbd-oil"},
		{"/es/productos/cbd-oil", "/es/productos/CBD-OIL"},
	} {
		c := newTestClassifier(t, 0)
		for _, p := range order {
			h, err := c.ClassifyPath(p)
			require.NoError(t, err, p)
			assert.Equal(t, base+"/es/productos/cbd-oil", h.Canonical, p)
		}
	}
}

func TestVariants(t *testing.T) {
	c := newTestClassifier(t, 0)

	prod, err := c.Classify("es", "productos/cbd-oil")
	require.NoError(t, err)
	assert.Contains(t, prod.Variants, "full-spectrum")

	landing, err := c.Classify("es", "flores-cbd-madrid")
	require.NoError(t, err)
	assert.Contains(t, landing.Variants, "indoor")

	home, err := c.Classify("es", "")
	require.NoError(t, err)
	assert.Empty(t, home.Variants)

	prod.Variants[0] = "changed"
	again, err := NewClassifier(c.cat, c.engine, base, 0)
	require.NoError(t, err)
	fresh, err := again.Classify("es", "productos/cbd-oil")
	require.NoError(t, err)
	assert.Equal(t, "full-spectrum", fresh.Variants[0])
}

func TestClassifyPath(t *testing.T) {
	c := newTestClassifier(t, 0)

	h, err := c.ClassifyPath("/es/aceite-cbd-madrid")
	require.NoError(t, err)
	assert.Equal(t, "es", h.Locale)
	assert.Equal(t, KindLanding, h.Kind)

	h, err = c.ClassifyPath("/about")
	require.NoError(t, err)
	assert.Equal(t, "en", h.Locale)
	assert.Equal(t, KindStatic, h.Kind)

	h, err = c.ClassifyPath("/")
	require.NoError(t, err)
	assert.Equal(t, KindHome, h.Kind)
}

func TestRender(t *testing.T) {
	c := newTestClassifier(t, 0)
	h, err := c.Classify("es", "barato-aceite-cbd")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, h))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	robots, _ := doc.Find(`meta[name="robots"]`).Attr("content")
	assert.Equal(t, RobotsNoIndex, robots)
	canonical, _ := doc.Find(`link[rel="canonical"]`).Attr("href")
	assert.Equal(t, base+"/es/aceite-cbd", canonical)
	assert.Equal(t, "Barato Aceite cbd", doc.Find("title").Text())
	assert.Equal(t, len(h.Variants), doc.Find("ul.variants li").Length())
	assert.Equal(t, "full-spectrum", doc.Find("ul.variants li").First().Text())

	var ld CollectionPage
	require.NoError(t, json.Unmarshal([]byte(doc.Find(`script[type="application/ld+json"]`).Text()), &ld))
	assert.Equal(t, "CollectionPage", ld.Type)
}
