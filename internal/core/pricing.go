package core

// pricing.go interprets the free-form price and discount text stored on
// items. Every function tolerates garbage input: currency symbols, thousands
// separators, stray letters and empty strings all resolve to a number, with
// anything unparseable treated as zero.

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// priceStripRegex matches every character that cannot appear in a price.
var priceStripRegex = regexp.MustCompile(`[^0-9.\-]`)

// leadingFloatRegex matches the longest numeric prefix of a string.
var leadingFloatRegex = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParsePrice converts raw price text to a number.
// "$1,234.50" parses as 1234.5; empty or unparseable input yields 0.
func ParsePrice(raw string) float64 {
	if raw == "" {
		return 0
	}
	return parseLeadingFloat(priceStripRegex.ReplaceAllString(raw, ""))
}

// parseLeadingFloat parses the numeric prefix of s after leading whitespace,
// so "12abc" is 12 and "1.2.3" is 1.2. Returns 0 when there is no prefix or
// the value is not finite.
func parseLeadingFloat(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	m := leadingFloatRegex.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CalculateDiscountedPrice applies a percentage discount to a list price.
//
// The discount is not clamped: negative discounts raise the price and
// discounts above 100 drive it negative, which is then floored at zero.
func CalculateDiscountedPrice(listPriceRaw, discountRaw string) float64 {
	listPrice := ParsePrice(listPriceRaw)
	pct := parseLeadingFloat(discountRaw)
	discounted := listPrice * (1 - pct/100)
	if discounted < 0 || math.IsNaN(discounted) {
		return 0
	}
	return discounted
}

// CalculatePricePaid is the discounted price plus shipping, never negative.
func CalculatePricePaid(listPriceRaw, shippingRaw, discountRaw string) float64 {
	total := CalculateDiscountedPrice(listPriceRaw, discountRaw) + ParsePrice(shippingRaw)
	return math.Max(0, total)
}

// FormatPricePaid renders a price with two decimals and no currency symbol,
// the form stored in the pricePaid field.
func FormatPricePaid(v float64) string {
	return toDecimal(v).StringFixed(2)
}

// FormatCurrency renders a value as "$" plus two decimal places.
// No grouping separators are used.
func FormatCurrency(v float64) string {
	return "$" + toDecimal(v).StringFixed(2)
}

// FormatCurrencyText parses raw price text and formats it as currency.
func FormatCurrencyText(raw string) string {
	return FormatCurrency(ParsePrice(raw))
}

func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
