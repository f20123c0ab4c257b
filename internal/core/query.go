package core

// query.go filters, sorts and groups the item collection for the catalog.
// Every function here is pure: inputs are never mutated.

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOption selects the catalog ordering.
type SortOption string

const (
	SortNewest       SortOption = "Newest"
	SortAlphabetical SortOption = "Alphabetical"
	SortPriceLowHigh SortOption = "Price: Low to High"
	SortPriceHighLow SortOption = "Price: High to Low"
)

// SortOptions lists the orderings in display order.
var SortOptions = []SortOption{SortNewest, SortAlphabetical, SortPriceLowHigh, SortPriceHighLow}

// ParseSortOption accepts a display label or a short alias.
// Unknown values fall back to SortNewest.
func ParseSortOption(s string) SortOption {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alphabetical", "alpha", "name":
		return SortAlphabetical
	case "price: low to high", "price_asc", "price-asc":
		return SortPriceLowHigh
	case "price: high to low", "price_desc", "price-desc":
		return SortPriceHighLow
	default:
		return SortNewest
	}
}

// Filter narrows the catalog. All set criteria must match.
type Filter struct {
	Search    string   // Substring over name, color, size, style, season, year, notes, source, condition
	Category  string   // Exact match; "" or "All" disables
	Size      string   // Case-insensitive substring
	Color     string   // Case-insensitive substring
	Condition string   // Exact match
	Source    string   // Exact match
	MinPrice  *float64 // Discounted price lower bound
	MaxPrice  *float64 // Discounted price upper bound
}

// IsDefault reports whether the filter lets every item through.
func (f Filter) IsDefault() bool {
	return strings.TrimSpace(f.Search) == "" &&
		(f.Category == "" || f.Category == CategoryAll) &&
		f.Size == "" &&
		f.Color == "" &&
		f.Condition == "" &&
		f.Source == "" &&
		f.MinPrice == nil &&
		f.MaxPrice == nil
}

// Match reports whether a single item passes the filter.
func (f Filter) Match(item Item) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(searchHaystack(item), q) {
			return false
		}
	}

	if f.Category != "" && f.Category != CategoryAll && item.Category != f.Category {
		return false
	}

	if f.Size != "" && !containsFold(item.Size, f.Size) {
		return false
	}

	if f.Color != "" && !containsFold(item.Color, f.Color) {
		return false
	}

	if f.Condition != "" && item.Condition != f.Condition {
		return false
	}

	if f.Source != "" && item.Source != f.Source {
		return false
	}

	if f.MinPrice != nil || f.MaxPrice != nil {
		price := item.DiscountedPrice()
		if f.MinPrice != nil && price < *f.MinPrice {
			return false
		}
		if f.MaxPrice != nil && price > *f.MaxPrice {
			return false
		}
	}

	return true
}

// searchHaystack joins the searchable fields, skipping empty ones.
func searchHaystack(item Item) string {
	parts := make([]string, 0, 9)
	for _, v := range []string{
		item.Name,
		item.Color,
		item.Size,
		item.StyleNumber,
		item.Season,
		item.Year,
		item.Notes,
		item.Source,
		item.Condition,
	} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Apply returns the items passing the filter, in the requested order.
func Apply(items []Item, f Filter, order SortOption) []Item {
	result := make([]Item, 0, len(items))
	for _, item := range items {
		if f.Match(item) {
			result = append(result, item)
		}
	}
	SortItems(result, order)
	return result
}

// SortItems orders items in place. The sort is stable, so ties keep their
// incoming order.
func SortItems(items []Item, order SortOption) {
	switch order {
	case SortAlphabetical:
		col := collate.New(language.English)
		sort.SliceStable(items, func(i, j int) bool {
			return col.CompareString(items[i].Name, items[j].Name) < 0
		})
	case SortPriceLowHigh, SortPriceHighLow:
		type priced struct {
			item  Item
			price float64
		}
		ps := make([]priced, len(items))
		for i, it := range items {
			ps[i] = priced{item: it, price: it.DiscountedPrice()}
		}
		desc := order == SortPriceHighLow
		sort.SliceStable(ps, func(i, j int) bool {
			if desc {
				return ps[i].price > ps[j].price
			}
			return ps[i].price < ps[j].price
		})
		for i := range ps {
			items[i] = ps[i].item
		}
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt > items[j].CreatedAt
		})
	}
}

// CategoryGroup is one catalog section.
type CategoryGroup struct {
	Category string `json:"category"`
	Items    []Item `json:"items"`
}

// GroupByCategory partitions items by category, keeping their order inside
// each group and ordering groups by first appearance. Items without a
// category land in the "Uncategorized" group.
func GroupByCategory(items []Item) []CategoryGroup {
	var groups []CategoryGroup
	index := make(map[string]int)

	for _, item := range items {
		cat := item.Category
		if cat == "" {
			cat = Uncategorized
		}
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, CategoryGroup{Category: cat})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}

// ResultState tells the presentation layer which view to show.
type ResultState string

const (
	StateEmpty     ResultState = "empty"      // Nothing in the store
	StateNoMatches ResultState = "no_matches" // Filters excluded every item
	StateResults   ResultState = "results"
)

// Query combines a filter with an ordering.
type Query struct {
	Filter Filter
	Sort   SortOption
}

// QueryResult is a filtered, sorted and grouped catalog view.
type QueryResult struct {
	State  ResultState     `json:"state"`
	Total  int             `json:"total"` // Items in the store
	Count  int             `json:"count"` // Items after filtering
	Groups []CategoryGroup `json:"groups"`
}

// Run executes a query against the full collection.
//
// An empty result is reported as StateNoMatches only when some filter is
// active; with default filters it means the store itself is empty.
func Run(items []Item, q Query) QueryResult {
	matched := Apply(items, q.Filter, q.Sort)

	res := QueryResult{
		Total:  len(items),
		Count:  len(matched),
		Groups: GroupByCategory(matched),
	}
	if res.Groups == nil {
		res.Groups = []CategoryGroup{}
	}

	switch {
	case len(matched) > 0:
		res.State = StateResults
	case q.Filter.IsDefault():
		res.State = StateEmpty
	default:
		res.State = StateNoMatches
	}
	return res
}
