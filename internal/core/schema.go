package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldType represents the kind of value a canonical item field holds.
// Every field is stored as text; the type is a hint for consumers.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldNumeric
	FieldImage
)

// FieldSpec describes a single canonical item field.
type FieldSpec struct {
	Name       string    // Canonical field name, also the JSON key
	Label      string    // Display label
	Type       FieldType // Value hint
	Default    string    // Value used by the blank item template
	EnumValues []string  // Allowed values for FieldEnum (form path only)
}

// Default and sentinel category names.
const (
	DefaultCategory = "Short-Sleeve Tees"
	CategoryAll     = "All"
	Uncategorized   = "Uncategorized"
)

// Categories lists the valid item categories, in display order.
var Categories = []string{
	"Short-Sleeve Tees",
	"Long-Sleeve Tees",
	"Sun Shirts & Sun Hoodies",
	"Thermal Baselayers",
	"Long-Sleeve Shirts & Wovens",
	"Fleece & Knits",
	"Insulation",
	"Rain/Shells",
	"Pants",
	"Shorts",
}

// AllCategories is Categories prefixed with the "All" sentinel.
var AllCategories = append([]string{CategoryAll}, Categories...)

// Conditions lists the item conditions offered by the form.
var Conditions = []string{
	"New with tags",
	"New without tags",
	"Excellent",
	"Good",
	"Fair",
}

// Sources lists where items can be obtained from.
var Sources = []string{"eBay", "Facebook", "Patagonia Outlet", "Other"}

// Seasons and Sizes are the quick-pick values offered by the form.
var (
	Seasons = []string{"Spring", "Fall"}
	Sizes   = []string{"Medium", "Large"}
)

// Fields is the ordered canonical field schema shared by the importer,
// the form path, table edits and exports.
var Fields = []FieldSpec{
	{Name: "image", Label: "Image", Type: FieldImage},
	{Name: "name", Label: "Item name", Type: FieldText},
	{Name: "color", Label: "Color", Type: FieldText},
	{Name: "size", Label: "Size", Type: FieldText},
	{Name: "category", Label: "Category", Type: FieldEnum, Default: DefaultCategory, EnumValues: Categories},
	{Name: "styleNumber", Label: "Style #", Type: FieldText},
	{Name: "season", Label: "Season", Type: FieldText},
	{Name: "year", Label: "Year", Type: FieldText},
	{Name: "listPrice", Label: "List price", Type: FieldNumeric},
	{Name: "shippingPrice", Label: "Shipping price", Type: FieldNumeric},
	{Name: "discount", Label: "Discount", Type: FieldNumeric},
	{Name: "condition", Label: "Condition", Type: FieldEnum, EnumValues: Conditions},
	{Name: "source", Label: "Obtained from", Type: FieldEnum, EnumValues: Sources},
	{Name: "pricePaid", Label: "Price paid", Type: FieldNumeric},
	{Name: "notes", Label: "Notes", Type: FieldText},
}

// FieldNames returns the canonical field names in schema order.
func FieldNames() []string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = f.Name
	}
	return names
}

// LookupField returns the FieldSpec for a canonical field name.
func LookupField(name string) (FieldSpec, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Item is one inventory record.
//
// Prices and the discount are kept as the text the user typed; the pricing
// functions interpret them and treat garbage as zero.
type Item struct {
	ID            string `json:"id"`
	CreatedAt     int64  `json:"createdAt"`
	Image         string `json:"image"`
	Name          string `json:"name"`
	Color         string `json:"color"`
	Size          string `json:"size"`
	Category      string `json:"category"`
	StyleNumber   string `json:"styleNumber"`
	Season        string `json:"season"`
	Year          string `json:"year"`
	ListPrice     string `json:"listPrice"`
	ShippingPrice string `json:"shippingPrice"`
	Discount      string `json:"discount"`
	Condition     string `json:"condition"`
	Source        string `json:"source"`
	PricePaid     string `json:"pricePaid"`
	Notes         string `json:"notes"`
}

// fieldPtr maps a canonical field name to the backing struct field.
func (it *Item) fieldPtr(name string) *string {
	switch name {
	case "image":
		return &it.Image
	case "name":
		return &it.Name
	case "color":
		return &it.Color
	case "size":
		return &it.Size
	case "category":
		return &it.Category
	case "styleNumber":
		return &it.StyleNumber
	case "season":
		return &it.Season
	case "year":
		return &it.Year
	case "listPrice":
		return &it.ListPrice
	case "shippingPrice":
		return &it.ShippingPrice
	case "discount":
		return &it.Discount
	case "condition":
		return &it.Condition
	case "source":
		return &it.Source
	case "pricePaid":
		return &it.PricePaid
	case "notes":
		return &it.Notes
	}
	return nil
}

// Field returns the value of a canonical field.
func (it Item) Field(name string) (string, bool) {
	p := it.fieldPtr(name)
	if p == nil {
		return "", false
	}
	return *p, true
}

// SetField assigns a canonical field by name.
func (it *Item) SetField(name, value string) error {
	p := it.fieldPtr(name)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	*p = value
	return nil
}

// IsBlank reports whether every canonical field is empty or whitespace.
func (it Item) IsBlank() bool {
	for _, f := range Fields {
		v, _ := it.Field(f.Name)
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// DiscountedPrice is the list price after the percentage discount.
func (it Item) DiscountedPrice() float64 {
	return CalculateDiscountedPrice(it.ListPrice, it.Discount)
}

// BlankItem returns the empty item template with identity assigned.
func BlankItem(id string, createdAt int64) Item {
	it := Item{ID: id, CreatedAt: createdAt}
	for _, f := range Fields {
		if f.Default != "" {
			_ = it.SetField(f.Name, f.Default) // f.Name is canonical
		}
	}
	return it
}

// ItemFromRecord converts a loosely-typed JSON object into an Item.
// Scalars are stringified, null and nested values become empty strings.
func ItemFromRecord(rec map[string]any) Item {
	var it Item
	it.ID = stringify(rec["id"])
	it.CreatedAt = toMillis(rec["createdAt"])
	for _, f := range Fields {
		_ = it.SetField(f.Name, stringify(rec[f.Name])) // f.Name is canonical
	}
	return it
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func toMillis(v any) int64 {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0
		}
		return int64(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return i
		}
	}
	return 0
}
