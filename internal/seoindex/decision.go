// Package seoindex decides which landing pages are indexed, at what sitemap
// tier and priority, and why.
//
// The decision table is an ordered list of named rules; the first rule whose
// predicate matches produces the decision. Every input maps to a decision and
// anything the table does not recognise falls through to noindex.
package seoindex

import (
	"fmt"
	"strconv"
)

// Tier buckets pages for sitemap inclusion.
type Tier string

const (
	Tier1   Tier = "tier1"
	Tier2   Tier = "tier2"
	NoIndex Tier = "noindex"
)

// City is the city signal of a page.
type City struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Population int    `json:"population"`
	Country    string `json:"country"`
}

// Signals are the classification inputs detected for a page. Empty strings
// and a nil City mean the axis is absent.
type Signals struct {
	Locale   string `json:"locale"`
	Category string `json:"category,omitempty"`
	Intent   string `json:"intent,omitempty"`
	City     *City  `json:"city,omitempty"`
}

// Decision is the verdict for one page.
type Decision struct {
	Index    bool    `json:"index"`
	Tier     Tier    `json:"tier"`
	Reason   string  `json:"reason"`
	Priority float64 `json:"sitemapPriority"`
	Rule     string  `json:"rule"`
}

// Rule names, in evaluation order.
const (
	RuleCategoryPage    = "category-page"
	RuleIndexedIntent   = "indexed-intent"
	RuleDuplicateIntent = "duplicate-intent"
	RuleCategoryCity    = "category-city"
	RuleTripleCombo     = "triple-combo"
	RuleNoCategory      = "no-category"
	RuleDefault         = "default"
)

type rule struct {
	name   string
	match  func(p Policy, s Signals) bool
	decide func(p Policy, s Signals) Decision
}

// Engine evaluates Signals against a Policy.
type Engine struct {
	policy     Policy
	categories map[string]struct{}
	rules      []rule
}

// New builds an engine. categories restricts which category keys count as
// present; when empty any non-empty category is accepted.
func New(p Policy, categories []string) *Engine {
	e := &Engine{policy: p, rules: defaultRules()}
	if len(categories) > 0 {
		e.categories = make(map[string]struct{}, len(categories))
		for _, c := range categories {
			e.categories[c] = struct{}{}
		}
	}
	return e
}

// Policy returns the policy the engine evaluates against.
func (e *Engine) Policy() Policy { return e.policy }

// Rules lists rule names in precedence order.
func (e *Engine) Rules() []string {
	out := make([]string, 0, len(e.rules)+1)
	for _, r := range e.rules {
		out = append(out, r.name)
	}
	return append(out, RuleDefault)
}

// Decide classifies one page. It never fails.
func (e *Engine) Decide(s Signals) Decision {
	if s.Category != "" && e.categories != nil {
		if _, ok := e.categories[s.Category]; !ok {
			s.Category = ""
		}
	}
	for _, r := range e.rules {
		if r.match(e.policy, s) {
			d := r.decide(e.policy, s)
			d.Rule = r.name
			return d
		}
	}
	d := notIndexed("Unclassified page pattern - default noindex")
	d.Rule = RuleDefault
	return d
}

func defaultRules() []rule {
	return []rule{
		{
			name: RuleCategoryPage,
			match: func(_ Policy, s Signals) bool {
				return s.Category != "" && s.Intent == "" && s.City == nil
			},
			decide: func(Policy, Signals) Decision {
				return indexed(Tier1, 0.9, "Pure category page - core money page")
			},
		},
		{
			name: RuleIndexedIntent,
			match: func(p Policy, s Signals) bool {
				return s.Category != "" && s.City == nil && s.Intent != "" && p.IsIndexedIntent(s.Intent)
			},
			decide: func(_ Policy, s Signals) Decision {
				return indexed(Tier1, 0.85, fmt.Sprintf("Intent %q + category - highest commercial intent", s.Intent))
			},
		},
		{
			name: RuleDuplicateIntent,
			match: func(_ Policy, s Signals) bool {
				return s.Category != "" && s.City == nil && s.Intent != ""
			},
			decide: func(_ Policy, s Signals) Decision {
				return notIndexed(fmt.Sprintf("Intent %q is duplicate of category page - noindex", s.Intent))
			},
		},
		{
			name: RuleCategoryCity,
			match: func(_ Policy, s Signals) bool {
				return s.Category != "" && s.City != nil && s.Intent == ""
			},
			decide: decideCity,
		},
		{
			name: RuleTripleCombo,
			match: func(_ Policy, s Signals) bool {
				return s.Category != "" && s.Intent != "" && s.City != nil
			},
			decide: func(Policy, Signals) Decision {
				return notIndexed("Triple combo (intent+category+city) - always thin content")
			},
		},
		{
			name:  RuleNoCategory,
			match: func(_ Policy, s Signals) bool { return s.Category == "" },
			decide: func(Policy, Signals) Decision {
				return notIndexed("No category detected - cannot classify page")
			},
		},
	}
}

func decideCity(p Policy, s Signals) Decision {
	c := *s.City
	eligible, primary, _ := p.CityEligible(s.Locale, c)
	if eligible {
		return indexed(Tier2, 0.7, fmt.Sprintf("Category + major city (%s, pop %d) - real local intent", c.Name, c.Population))
	}
	if primary {
		pop := "unknown"
		if c.Population > 0 {
			pop = strconv.Itoa(c.Population)
		}
		return notIndexed(fmt.Sprintf("City too small (%s, pop %s < %d) - noindex", c.Name, pop, p.MinCityPopulation))
	}
	country := c.Country
	if country == "" {
		country = "unknown"
	}
	return notIndexed(fmt.Sprintf("Non-primary country city (%s, country %s) for locale %s - noindex", c.Name, country, s.Locale))
}

func indexed(t Tier, priority float64, reason string) Decision {
	return Decision{Index: true, Tier: t, Reason: reason, Priority: priority}
}

func notIndexed(reason string) Decision {
	return Decision{Index: false, Tier: NoIndex, Reason: reason, Priority: 0}
}
