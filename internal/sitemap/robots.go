package sitemap

import (
	"fmt"
	"strings"
)

// GonePrefix is the retired path of the old combinatorial sitemaps.
const GonePrefix = "/sitemaps-massive/"

// GoneMessage is served with 410 for anything under GonePrefix.
const GoneMessage = "This sitemap has been permanently removed. These URLs are no longer indexed."

var blockedPaths = []string{"/api/", "/_next/", "/admin/", GonePrefix}

// Robots renders robots.txt for a site.
func Robots(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	var b strings.Builder
	fmt.Fprintf(&b, "# CBD Boutique robots.txt\n# %s\n# Only indexable pages are listed in sitemaps. Thin pages carry noindex.\n\n", baseURL)
	b.WriteString("User-agent: *\nAllow: /\n\n")
	fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n\n", baseURL)
	b.WriteString("Crawl-delay: 1\n\n")
	for _, p := range blockedPaths {
		fmt.Fprintf(&b, "Disallow: %s\n", p)
	}
	b.WriteString("\nUser-agent: Googlebot\nAllow: /\n")
	for _, p := range blockedPaths {
		fmt.Fprintf(&b, "Disallow: %s\n", p)
	}
	b.WriteString("\nUser-agent: Bingbot\nAllow: /\nCrawl-delay: 2\n")
	b.WriteString("\nUser-agent: Yandex\nAllow: /\nCrawl-delay: 2\n")
	return b.String()
}
