package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jessedrg/cbd-boutique/internal/seoindex"
	"github.com/jessedrg/cbd-boutique/internal/sitemap"
)

// MaxReportEntries caps the entries embedded in a JSON report.
const MaxReportEntries = 200

// Counts is an index/noindex tally.
type Counts struct {
	Index   int `json:"index"`
	NoIndex int `json:"noindex"`
}

func (c *Counts) add(indexed bool) {
	if indexed {
		c.Index++
	} else {
		c.NoIndex++
	}
}

// Summary aggregates a full audit.
type Summary struct {
	Total      int               `json:"total"`
	Index      int               `json:"index"`
	NoIndex    int               `json:"noindex"`
	Reduction  string            `json:"reduction"`
	ByLocale   map[string]Counts `json:"byLocale"`
	ByType     map[string]Counts `json:"byType"`
	Thresholds seoindex.Policy   `json:"thresholds"`
}

// Summarize tallies entries. Summaries are always computed over the
// unfiltered audit.
func Summarize(entries []Entry, p seoindex.Policy) Summary {
	s := Summary{
		Total:      len(entries),
		ByLocale:   map[string]Counts{},
		ByType:     map[string]Counts{},
		Thresholds: p,
	}
	for _, e := range entries {
		if e.Index {
			s.Index++
		} else {
			s.NoIndex++
		}
		l := s.ByLocale[e.Locale]
		l.add(e.Index)
		s.ByLocale[e.Locale] = l
		t := s.ByType[e.Type]
		t.add(e.Index)
		s.ByType[e.Type] = t
	}
	pct := 0.0
	if s.Total > 0 {
		pct = float64(s.NoIndex) / float64(s.Total) * 100
	}
	s.Reduction = fmt.Sprintf("%.1f%% of pages are now noindex", pct)
	return s
}

// Instructions tell operators what to do with the audit.
type Instructions struct {
	Sitemap    string `json:"sitemap"`
	NoIndex    string `json:"noindex"`
	GSCRemoval string `json:"gscRemoval"`
	CSVAudit   string `json:"csvAudit"`
	IndexOnly  string `json:"indexOnly"`
}

// InstructionsFor builds operator instructions for a site.
func InstructionsFor(baseURL string) Instructions {
	return Instructions{
		Sitemap:    fmt.Sprintf("Submit ONLY %s/sitemap.xml to Google Search Console", baseURL),
		NoIndex:    `Noindex pages carry <meta name="robots" content="noindex, follow"> automatically`,
		GSCRemoval: fmt.Sprintf("Download the noindex URL list: %s/api/seo-audit?format=txt&filter=noindex", baseURL),
		CSVAudit:   fmt.Sprintf("Download full CSV audit: %s/api/seo-audit?format=csv", baseURL),
		IndexOnly:  fmt.Sprintf("Download indexed URLs only: %s/api/seo-audit?format=csv&filter=index", baseURL),
	}
}

// Report is the JSON audit document.
type Report struct {
	Generated    time.Time    `json:"generated"`
	Summary      Summary      `json:"summary"`
	Instructions Instructions `json:"instructions"`
	Entries      []Entry      `json:"entries"`
	Note         string       `json:"note,omitempty"`
}

// NewReport summarizes all and embeds at most MaxReportEntries of filtered.
func NewReport(all, filtered []Entry, p seoindex.Policy, baseURL string, now time.Time) Report {
	r := Report{
		Generated:    now.UTC(),
		Summary:      Summarize(all, p),
		Instructions: InstructionsFor(baseURL),
		Entries:      filtered,
	}
	if r.Entries == nil {
		r.Entries = []Entry{}
	}
	if len(filtered) > MaxReportEntries {
		r.Entries = filtered[:MaxReportEntries]
		r.Note = fmt.Sprintf("Showing first %d of %d entries. Use ?format=csv for complete download.", MaxReportEntries, len(filtered))
	}
	return r
}

// CSVHeader is the first row of a CSV audit.
var CSVHeader = []string{"url", "locale", "type", "index", "tier", "reason", "priority"}

// WriteCSV writes entries with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.URL,
			e.Locale,
			e.Type,
			strconv.FormatBool(e.Index),
			string(e.Tier),
			e.Reason,
			sitemap.FormatPriority(e.Priority),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTXT writes one URL per line.
func WriteTXT(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if _, err := io.WriteString(w, e.URL+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Filename is the download name for an export in format ("csv" or "txt").
func Filename(format string, f Filter, now time.Time) string {
	day := now.UTC().Format("2006-01-02")
	if format == "txt" {
		return fmt.Sprintf("seo-%s-urls-%s.txt", f.Label(), day)
	}
	return fmt.Sprintf("seo-audit-%s-%s.%s", f.Label(), day, format)
}
