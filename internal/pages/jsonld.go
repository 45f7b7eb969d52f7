package pages

// CollectionPage is the schema.org document embedded in landing pages.
type CollectionPage struct {
	Context     string         `json:"@context"`
	Type        string         `json:"@type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	InLanguage  string         `json:"inLanguage"`
	Breadcrumb  BreadcrumbList `json:"breadcrumb"`
}

// BreadcrumbList is the schema.org breadcrumb trail.
type BreadcrumbList struct {
	Type  string     `json:"@type"`
	Items []ListItem `json:"itemListElement"`
}

// ListItem is one breadcrumb.
type ListItem struct {
	Type     string `json:"@type"`
	Position int    `json:"position"`
	Name     string `json:"name"`
	Item     string `json:"item"`
}

func newCollectionPage(name, desc, url, locale string, crumbs []ListItem) CollectionPage {
	for i := range crumbs {
		crumbs[i].Type = "ListItem"
	}
	return CollectionPage{
		Context:     "https://schema.org",
		Type:        "CollectionPage",
		Name:        name,
		Description: desc,
		URL:         url,
		InLanguage:  locale,
		Breadcrumb:  BreadcrumbList{Type: "BreadcrumbList", Items: crumbs},
	}
}
