package pages

import (
	"encoding/json"
	"html/template"
	"io"
)

var headTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Locale}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta name="robots" content="{{.Robots}}">
<link rel="canonical" href="{{.Canonical}}">
<meta property="og:title" content="{{.Title}} | CBD Boutique">
<meta property="og:description" content="{{.Description}}">
<meta property="og:url" content="{{.Canonical}}">
<meta property="og:locale" content="{{.OGLocale}}">
<meta property="og:site_name" content="CBD Boutique">
<meta property="og:type" content="website">
<script type="application/ld+json">{{.LD}}</script>
</head>
<body>
<h1>{{.Title}}</h1>
{{- if .Variants}}
<ul class="variants">
{{- range .Variants}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
</body>
</html>
`))

type renderData struct {
	Head
	LD template.JS
}

// Render writes a minimal HTML document carrying the page head.
func Render(w io.Writer, h Head) error {
	ld, err := json.Marshal(h.JSONLD)
	if err != nil {
		return err
	}
	return headTemplate.Execute(w, renderData{Head: h, LD: template.JS(ld)})
}
