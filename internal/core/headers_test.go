package core

import (
	"slices"
	"testing"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Item Name", "itemname"},
		{"item_name", "itemname"},
		{"ITEM", "item"},
		{"List Price ($)", "listprice"},
		{"Style #", "style"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeHeader(tt.input); got != tt.want {
				t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildHeaderMap(t *testing.T) {
	tests := []struct {
		header string
		want   string // "" means unmapped
	}{
		{"Item Name", "name"},
		{"item_name", "name"},
		{"ITEM", "name"},
		{"name", "name"},
		{"Price", "listPrice"},
		{"List Price", "listPrice"},
		{"Shipping Cost", "shippingPrice"},
		{"shipping", "shippingPrice"},
		{"Shipping Price", "shippingPrice"},
		{"Discount %", "discount"},
		{"Discount Percent", "discount"},
		{"discount_pct", "discount"},
		{"Price Paid", "pricePaid"},
		{"Style", "styleNumber"},
		{"Style Number", "styleNumber"},
		{"CATEGORY", "category"},
		{"Image", "image"},
		{"foo_bar", ""},
		{"Purchase Date", ""},
	}

	headers := make([]string, len(tests))
	for i, tt := range tests {
		headers[i] = tt.header
	}
	m := BuildHeaderMap(headers)

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := m[tt.header]
			if tt.want == "" {
				if ok {
					t.Errorf("header %q mapped to %q, want unmapped", tt.header, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("header %q mapped to %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestHeaderMap_Unmapped(t *testing.T) {
	headers := []string{"Name", "foo_bar", "Color", "Purchase Date"}
	got := BuildHeaderMap(headers).Unmapped(headers)

	want := []string{"foo_bar", "Purchase Date"}
	if !slices.Equal(got, want) {
		t.Errorf("Unmapped = %v, want %v", got, want)
	}
}

func TestBuildHeaderMap_EveryCanonicalField(t *testing.T) {
	names := FieldNames()
	m := BuildHeaderMap(names)

	for _, name := range names {
		if m[name] != name {
			t.Errorf("canonical header %q mapped to %q", name, m[name])
		}
	}
}
