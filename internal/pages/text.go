package pages

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SiteName is appended to Open Graph titles.
const SiteName = "CBD Boutique"

// FallbackTitle is used when nothing was detected in the slug.
const FallbackTitle = "CBD Products"

// descriptionTemplates take the category name and the " {prep} {city}" suffix.
var descriptionTemplates = map[string]string{
	"es": "Compra %s%s de la más alta calidad. Productos orgánicos, testados en laboratorio, envío discreto 24-48h. ✓ Legal ✓ Certificado ✓ Garantía",
	"en": "Buy %s%s of the highest quality. Organic, lab-tested products, discreet shipping 24-48h. ✓ Legal ✓ Certified ✓ Guaranteed",
	"de": "Kaufen Sie %s%s in höchster Qualität. Bio, laborgetestet, diskreter Versand 24-48h. ✓ Legal ✓ Zertifiziert ✓ Garantiert",
	"fr": "Achetez %s%s de la plus haute qualité. Bio, testé en labo, livraison discrète 24-48h. ✓ Légal ✓ Certifié ✓ Garanti",
	"it": "Acquista %s%s della massima qualità. Biologico, testato in laboratorio, spedizione discreta 24-48h. ✓ Legale ✓ Certificato ✓ Garantito",
	"pt": "Compre %s%s da mais alta qualidade. Orgânico, testado em laboratório, envio discreto 24-48h. ✓ Legal ✓ Certificado ✓ Garantido",
	"nl": "Koop %s%s van de hoogste kwaliteit. Biologisch, labgetest, discrete verzending 24-48u. ✓ Legaal ✓ Gecertificeerd ✓ Gegarandeerd",
	"pl": "Kup %s%s najwyższej jakości. Organiczne, testowane laboratoryjnie, dyskretna wysyłka 24-48h. ✓ Legalny ✓ Certyfikowany ✓ Gwarantowany",
	"cs": "Kupte %s%s nejvyšší kvality. Bio, laboratorně testované, diskrétní doručení 24-48h. ✓ Legální ✓ Certifikováno ✓ Zaručeno",
	"el": "Αγοράστε %s%s υψηλότερης ποιότητας. Βιολογικό, εργαστηριακά ελεγμένο, διακριτική αποστολή 24-48ω. ✓ Νόμιμο ✓ Πιστοποιημένο ✓ Εγγυημένο",
}

func description(locale, categoryName, cityText string) string {
	tpl, ok := descriptionTemplates[locale]
	if !ok {
		tpl = descriptionTemplates["en"]
	}
	if categoryName == "" {
		categoryName = "CBD"
	}
	return fmt.Sprintf(tpl, categoryName, cityText)
}

// OGLocale maps a site locale to an Open Graph locale tag.
func OGLocale(locale string) string {
	switch locale {
	case "es":
		return "es_ES"
	case "en":
		return "en_US"
	}
	return locale + "_" + strings.ToUpper(locale)
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
