package core

import (
	"regexp"
	"strings"
)

// headerStripRegex removes everything but lowercase letters and digits.
var headerStripRegex = regexp.MustCompile(`[^a-z0-9]`)

// headerSynonyms maps normalized header spellings to canonical fields.
// Consulted only when a header does not normalize to a canonical name.
var headerSynonyms = map[string]string{
	"itemname":        "name",
	"item":            "name",
	"listprice":       "listPrice",
	"price":           "listPrice",
	"shipping":        "shippingPrice",
	"shippingcost":    "shippingPrice",
	"discountpercent": "discount",
	"discountpct":     "discount",
	"pricepaid":       "pricePaid",
	"style":           "styleNumber",
	"stylenumber":     "styleNumber",
}

// HeaderMap maps an original CSV header to its canonical field name.
// Headers that matched nothing are absent.
type HeaderMap map[string]string

// NormalizeHeader lowercases a header and drops every character outside
// [a-z0-9], so "Item Name", "item_name" and "ITEMNAME" compare equal.
func NormalizeHeader(h string) string {
	return headerStripRegex.ReplaceAllString(strings.ToLower(h), "")
}

// BuildHeaderMap reconciles CSV headers against the canonical field set.
// Each header is tried as an exact normalized field name first, then
// against the synonym table.
func BuildHeaderMap(headers []string) HeaderMap {
	canonical := make(map[string]string, len(Fields))
	for _, f := range Fields {
		canonical[NormalizeHeader(f.Name)] = f.Name
	}

	m := make(HeaderMap, len(headers))
	for _, h := range headers {
		norm := NormalizeHeader(h)
		if field, ok := canonical[norm]; ok {
			m[h] = field
			continue
		}
		if field, ok := headerSynonyms[norm]; ok {
			m[h] = field
		}
	}
	return m
}

// Unmapped returns the headers, in order, that the map ignores.
func (m HeaderMap) Unmapped(headers []string) []string {
	var out []string
	for _, h := range headers {
		if _, ok := m[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}
