// Package inspect fetches rendered landing pages and checks that what is
// served matches the index decision: robots directives, canonical URL,
// structured data, amount of main content and content language.
package inspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"

	"github.com/jessedrg/cbd-boutique/internal/pages"
)

// Severity ranks findings.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarn:
		return 1
	}
	return 0
}

// Finding is one observation about a page.
type Finding struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Check    string   `json:"check" yaml:"check"`
	Message  string   `json:"message" yaml:"message"`
}

// Report is the result of checking one URL.
type Report struct {
	URL       string    `json:"url" yaml:"url"`
	Locale    string    `json:"locale" yaml:"locale"`
	Expected  string    `json:"expectedRobots" yaml:"expected_robots"`
	Rule      string    `json:"rule,omitempty" yaml:"rule,omitempty"`
	Robots    string    `json:"robots" yaml:"robots"`
	Canonical string    `json:"canonical" yaml:"canonical"`
	JSONLD    bool      `json:"jsonLd" yaml:"json_ld"`
	Words     int       `json:"words" yaml:"words"`
	Language  string    `json:"language,omitempty" yaml:"language,omitempty"`
	Findings  []Finding `json:"findings" yaml:"findings"`
}

// Worst is the highest severity among the findings, or "" when clean.
func (r Report) Worst() Severity {
	var worst Severity
	for _, f := range r.Findings {
		if worst == "" || f.Severity.rank() > worst.rank() {
			worst = f.Severity
		}
	}
	return worst
}

func (r *Report) add(sev Severity, check, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Severity: sev, Check: check, Message: fmt.Sprintf(format, args...)})
}

// DefaultMinWords is the main content size below which an indexed page is
// reported as thin.
const DefaultMinWords = 300

// Checker compares served pages with computed heads.
type Checker struct {
	classifier *pages.Classifier
	client     *http.Client
	detector   lingua.LanguageDetector
	minWords   int
}

// NewChecker returns a checker. A nil client uses a 15 second timeout client;
// a non-positive minWords uses DefaultMinWords.
func NewChecker(classifier *pages.Classifier, client *http.Client, minWords int) *Checker {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Spanish, lingua.German, lingua.French, lingua.Italian,
			lingua.Portuguese, lingua.Dutch, lingua.Polish, lingua.Czech, lingua.Greek).
		Build()
	return &Checker{classifier: classifier, client: client, detector: detector, minWords: minWords}
}

// Check fetches rawURL and inspects the response.
func (c *Checker) Check(ctx context.Context, rawURL string) (Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Report{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "seoctl/1.0 (+index audit)")
	resp, err := c.client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Report{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		r := Report{URL: rawURL}
		sev := SeverityError
		if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
			sev = SeverityInfo
		}
		r.add(sev, "status", "unexpected status %d", resp.StatusCode)
		return r, nil
	}
	return c.Inspect(rawURL, resp.Header, bytes.NewReader(body))
}

// Inspect checks an already fetched page. header may be nil.
func (c *Checker) Inspect(rawURL string, header http.Header, body io.Reader) (Report, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Report{}, fmt.Errorf("parse url: %w", err)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return Report{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Report{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	r := Report{URL: rawURL}

	head, err := c.classifier.ClassifyPath(u.Path)
	if errors.Is(err, pages.ErrNotFound) {
		r.add(SeverityError, "route", "served page has no route: %v", err)
		return r, nil
	}
	if err != nil {
		return Report{}, err
	}
	r.Locale = head.Locale
	r.Expected = head.Robots
	r.Rule = head.Decision.Rule

	r.Robots = strings.TrimSpace(doc.Find(`meta[name="robots"]`).First().AttrOr("content", ""))
	r.Canonical = strings.TrimSpace(doc.Find(`link[rel="canonical"]`).First().AttrOr("href", ""))
	r.JSONLD = doc.Find(`script[type="application/ld+json"]`).Length() > 0

	c.checkRobots(&r, head, header)
	c.checkCanonical(&r, head, u)
	if head.Decision.Index && !r.JSONLD {
		r.add(SeverityWarn, "json-ld", "indexed page has no structured data")
	}

	text := c.mainText(raw, u, doc)
	r.Words = len(strings.Fields(text))
	if head.Decision.Index && r.Words < c.minWords {
		r.add(SeverityWarn, "thin-content", "indexed page has %d words of main content (< %d)", r.Words, c.minWords)
	}
	c.checkLanguage(&r, text)
	return r, nil
}

func (c *Checker) checkRobots(r *Report, head pages.Head, header http.Header) {
	servedNoIndex := strings.Contains(strings.ToLower(r.Robots), "noindex")
	if header != nil && strings.Contains(strings.ToLower(header.Get("X-Robots-Tag")), "noindex") {
		servedNoIndex = true
	}
	switch {
	case head.Decision.Index && servedNoIndex:
		r.add(SeverityError, "robots", "indexable page is served noindex (%s)", head.Decision.Reason)
	case !head.Decision.Index && !servedNoIndex:
		r.add(SeverityError, "robots", "page should be noindex but is indexable (%s)", head.Decision.Reason)
	case r.Robots == "":
		r.add(SeverityInfo, "robots", "no robots meta; crawlers default to index, follow")
	}
}

func (c *Checker) checkCanonical(r *Report, head pages.Head, page *url.URL) {
	if r.Canonical == "" {
		r.add(SeverityWarn, "canonical", "no canonical link")
		return
	}
	got := r.Canonical
	if ref, err := url.Parse(got); err == nil {
		got = page.ResolveReference(ref).String()
	}
	if strings.TrimRight(got, "/") != strings.TrimRight(head.Canonical, "/") {
		r.add(SeverityWarn, "canonical", "canonical %s, expected %s", got, head.Canonical)
	}
}

func (c *Checker) checkLanguage(r *Report, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	lang, ok := c.detector.DetectLanguageOf(text)
	if !ok {
		r.add(SeverityInfo, "language", "content language could not be detected")
		return
	}
	r.Language = strings.ToLower(lang.IsoCode639_1().String())
	if r.Language != r.Locale {
		r.add(SeverityWarn, "language", "content is %s, page locale is %s", lang.String(), r.Locale)
	}
}

// mainText extracts the readable article text, falling back to the body.
func (c *Checker) mainText(raw []byte, u *url.URL, doc *goquery.Document) string {
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(raw), u)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		content, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
		if err == nil {
			if text := strings.TrimSpace(content.Text()); text != "" {
				return text
			}
		}
	}
	return strings.TrimSpace(doc.Find("body").Text())
}
