package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jessedrg/cbd-boutique/internal/catalog"
	"github.com/jessedrg/cbd-boutique/internal/seoindex"
)

const base = "https://cbdboutique.io"

func newTestBuilder() *Builder {
	cat := catalog.Default()
	return NewBuilder(cat, seoindex.New(seoindex.DefaultPolicy(), cat.Categories), base)
}

func TestLocaleSpanish(t *testing.T) {
	b := newTestBuilder()
	entries := b.Locale("es", Options{})

	// homepage + about/contact + 6 product landings, 10 categories,
	// 20 intents x 10 categories, 15 cities x 10 categories
	require.Len(t, entries, 9+10+200+150)

	counts := map[string]Counts{}
	for _, e := range entries {
		c := counts[e.Type]
		c.add(e.Index)
		counts[e.Type] = c
		assert.Equal(t, "es", e.Locale)
		if e.Index {
			assert.NotEqual(t, seoindex.NoIndex, e.Tier, e.URL)
			assert.Positive(t, e.Priority, e.URL)
		} else {
			assert.Equal(t, seoindex.NoIndex, e.Tier, e.URL)
			assert.Zero(t, e.Priority, e.URL)
		}
	}
	assert.Equal(t, Counts{Index: 1}, counts[TypeHomepage])
	assert.Equal(t, Counts{Index: 6}, counts[TypeProductLanding])
	assert.Equal(t, Counts{Index: 10}, counts[TypeCategory])
	assert.Equal(t, Counts{Index: 10, NoIndex: 190}, counts[TypeIntentCategory])
	assert.Equal(t, Counts{Index: 140, NoIndex: 10}, counts[TypeCategoryCity])
	assert.Zero(t, counts[TypeTriple])
}

func TestLocaleReasons(t *testing.T) {
	b := newTestBuilder()
	byURL := map[string]Entry{}
	for _, e := range b.Locale("es", Options{}) {
		byURL[e.URL] = e
	}

	ibiza := byURL[base+"/es/aceite-cbd-ibiza"]
	assert.False(t, ibiza.Index)
	assert.Contains(t, ibiza.Reason, "City too small")

	cheap := byURL[base+"/es/barato-aceite-cbd"]
	assert.False(t, cheap.Index)
	assert.Contains(t, cheap.Reason, "duplicate")

	assert.Nil(t, b.Locale("xx", Options{}))
}

func TestTriplesAreOptIn(t *testing.T) {
	b := newTestBuilder()
	with := b.Locale("es", Options{Triples: true})
	without := b.Locale("es", Options{})
	require.Len(t, with, len(without)+20*15*10)

	for _, e := range with[len(without):] {
		assert.Equal(t, TypeTriple, e.Type)
		assert.False(t, e.Index, e.URL)
	}
	assert.Equal(t, base+"/es/comprar-aceite-cbd-madrid", with[len(without)].URL)
}

func TestBuildCoversEveryLocale(t *testing.T) {
	b := newTestBuilder()
	all := b.Build(Options{})
	s := Summarize(all, b.Policy())

	assert.Len(t, s.ByLocale, 10)
	assert.Equal(t, s.Total, s.Index+s.NoIndex)
	assert.Equal(t, len(all), s.Total)
	assert.True(t, strings.HasSuffix(s.Reduction, "% of pages are now noindex"))
	assert.Equal(t, 100_000, s.Thresholds.MinCityPopulation)
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{"": FilterAll, "all": FilterAll, "index": FilterIndex, " NoIndex ": FilterNoIndex} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFilter("maybe")
	assert.Error(t, err)
}

func TestFilterApply(t *testing.T) {
	entries := []Entry{{URL: "a", Index: true}, {URL: "b"}, {URL: "c", Index: true}}
	assert.Len(t, FilterAll.Apply(entries), 3)
	assert.Equal(t, []Entry{{URL: "b"}}, FilterNoIndex.Apply(entries))
	assert.Len(t, FilterIndex.Apply(entries), 2)
}

func TestSummarize(t *testing.T) {
	entries := []Entry{
		{Locale: "es", Type: TypeCategory, Index: true},
		{Locale: "es", Type: TypeCategoryCity},
		{Locale: "en", Type: TypeCategoryCity},
		{Locale: "en", Type: TypeCategoryCity},
	}
	s := Summarize(entries, seoindex.DefaultPolicy())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Index)
	assert.Equal(t, 3, s.NoIndex)
	assert.Equal(t, "75.0% of pages are now noindex", s.Reduction)
	assert.Equal(t, Counts{Index: 1, NoIndex: 1}, s.ByLocale["es"])
	assert.Equal(t, Counts{NoIndex: 3}, s.ByType[TypeCategoryCity])

	empty := Summarize(nil, seoindex.DefaultPolicy())
	assert.Equal(t, "0.0% of pages are now noindex", empty.Reduction)
}

func TestNewReportCapsEntries(t *testing.T) {
	b := newTestBuilder()
	all := b.Build(Options{})
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r := NewReport(all, all, b.Policy(), base, now)
	assert.Len(t, r.Entries, MaxReportEntries)
	assert.Contains(t, r.Note, "Showing first 200 of")
	assert.Contains(t, r.Instructions.Sitemap, base+"/sitemap.xml")

	small := NewReport(all, all[:3], b.Policy(), base, now)
	assert.Len(t, small.Entries, 3)
	assert.Empty(t, small.Note)

	raw, err := json.Marshal(small)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"note"`)
	assert.Contains(t, string(raw), `"primaryCountries"`)
	assert.Contains(t, string(raw), `"generated":"2026-01-02T03:04:05Z"`)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Entry{
		{URL: base + "/es/aceite-cbd", Locale: "es", Type: TypeCategory, Index: true, Tier: seoindex.Tier1, Reason: "Pure category page, core", Priority: 0.9},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{base + "/es/aceite-cbd", "es", "category", "true", "tier1", "Pure category page, core", "0.9"}, rows[1])
}

func TestWriteTXTAndFilename(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTXT(&buf, []Entry{{URL: "a"}, {URL: "b"}}))
	assert.Equal(t, "a\nb\n", buf.String())

	day := time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "seo-audit-all-2026-05-06.csv", Filename("csv", FilterAll, day))
	assert.Equal(t, "seo-audit-index-2026-05-06.csv", Filename("csv", FilterIndex, day))
	assert.Equal(t, "seo-noindex-urls-2026-05-06.txt", Filename("txt", FilterNoIndex, day))
}
