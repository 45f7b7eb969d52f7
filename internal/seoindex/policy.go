package seoindex

// MinCityPopulationForIndex is the smallest city that earns an indexed
// category+city page.
const MinCityPopulationForIndex = 100_000

// Policy holds the constants the decision rules are evaluated against.
type Policy struct {
	MinCityPopulation int               `json:"minCityPopulation" yaml:"min_city_population"`
	PrimaryCountry    map[string]string `json:"primaryCountries" yaml:"primary_country"`
	IndexedIntents    []string          `json:"indexedIntents" yaml:"indexed_intents"`
	ProductTypes      []string          `json:"indexedProductTypes" yaml:"indexed_product_types"`
}

// DefaultPolicy returns the production indexation policy.
func DefaultPolicy() Policy {
	return Policy{
		MinCityPopulation: MinCityPopulationForIndex,
		PrimaryCountry: map[string]string{
			"es": "spain",
			"en": "uk",
			"de": "germany",
			"fr": "france",
			"it": "italy",
			"pt": "portugal",
			"nl": "netherlands",
			"pl": "poland",
			"cs": "czechia",
			"el": "greece",
		},
		IndexedIntents: []string{"buy"},
		ProductTypes: []string{
			"cbd-oil",
			"cbd-vape",
			"cbd-flowers",
			"cbd-capsules",
			"cbd-isolate",
			"cbd-edibles",
		},
	}
}

// IsIndexedIntent reports whether intent gets its own indexed page.
func (p Policy) IsIndexedIntent(intent string) bool {
	for _, v := range p.IndexedIntents {
		if v == intent {
			return true
		}
	}
	return false
}

// IsProductType reports whether t has an indexed product landing page.
func (p Policy) IsProductType(t string) bool {
	for _, v := range p.ProductTypes {
		if v == t {
			return true
		}
	}
	return false
}

// CityEligible reports whether a category+city page is indexable for locale.
// The bool results explain a rejection: primary is false for a foreign
// country, large is false for a small city.
func (p Policy) CityEligible(locale string, c City) (eligible, primary, large bool) {
	want := p.PrimaryCountry[locale]
	primary = want != "" && c.Country == want
	large = c.Population >= p.MinCityPopulation
	return primary && large, primary, large
}
