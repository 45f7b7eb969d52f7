package sitemap

import (
	"encoding/xml"
	"io"
	"strconv"
	"time"
)

// Namespace is the sitemaps.org schema namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Xmlns    string       `xml:"xmlns,attr"`
	Sitemaps []xmlSitemap `xml:"sitemap"`
}

type xmlSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// WriteURLSet renders entries as a <urlset> document.
func WriteURLSet(w io.Writer, entries []Entry) error {
	doc := urlset{Xmlns: Namespace, URLs: make([]xmlURL, 0, len(entries))}
	for _, e := range entries {
		doc.URLs = append(doc.URLs, xmlURL{
			Loc:        e.URL,
			ChangeFreq: e.ChangeFreq,
			Priority:   FormatPriority(e.Priority),
		})
	}
	return encode(w, doc)
}

// WriteIndex renders a <sitemapindex> whose children share lastMod's date.
func WriteIndex(w io.Writer, locations []string, lastMod time.Time) error {
	day := lastMod.UTC().Format("2006-01-02")
	doc := sitemapIndex{Xmlns: Namespace, Sitemaps: make([]xmlSitemap, 0, len(locations))}
	for _, loc := range locations {
		doc.Sitemaps = append(doc.Sitemaps, xmlSitemap{Loc: loc, LastMod: day})
	}
	return encode(w, doc)
}

// FormatPriority prints a priority with the fewest digits that round-trip.
func FormatPriority(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if s == "1" || s == "0" {
		return s + ".0"
	}
	return s
}

func encode(w io.Writer, doc any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
