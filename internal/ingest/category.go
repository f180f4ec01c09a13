package ingest

import (
	"regexp"
	"strings"

	"itinerary/internal/model"
)

type categoryRule struct {
	match    *regexp.Regexp
	category string
}

// categoryRules is evaluated top to bottom; the first match wins, so order matters
// (e.g. "편의점 카페" normalizes to Cafe, not Mart).
var categoryRules = []categoryRule{
	{regexp.MustCompile(`(?i)카페|커피|cafe|coffee`), model.CategoryCafe},
	{regexp.MustCompile(`(?i)마트|슈퍼|편의|mart|supermarket|convenience`), model.CategoryMart},
	{regexp.MustCompile(`(?i)과일|청과|fruit|produce`), model.CategoryFruitShop},
	{regexp.MustCompile(`(?i)디저트|빵|케이크|제과|사탕|쿠키|dessert|bakery|cake|candy|cookie`), model.CategoryDessert},
}

// NormalizeCategory maps raw feed category text to a standard tag, keeping the trimmed
// raw text when no rule applies.
func NormalizeCategory(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, rule := range categoryRules {
		if rule.match.MatchString(raw) {
			return rule.category
		}
	}
	return raw
}
