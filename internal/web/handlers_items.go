package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/wardrobe/internal/core"
	"github.com/JonMunkholm/wardrobe/internal/logging"
)

// maxJSONBody caps JSON request bodies. Items can carry an embedded photo.
const maxJSONBody = 4 << 20

// itemView is an item plus the prices derived from it.
type itemView struct {
	core.Item
	DiscountedPrice        float64 `json:"discountedPrice"`
	DiscountedPriceDisplay string  `json:"discountedPriceDisplay"`
	ListPriceDisplay       string  `json:"listPriceDisplay"`
	PricePaidDisplay       string  `json:"pricePaidDisplay"`
}

func newItemView(item core.Item) itemView {
	discounted := item.DiscountedPrice()
	return itemView{
		Item:                   item,
		DiscountedPrice:        discounted,
		DiscountedPriceDisplay: core.FormatCurrency(discounted),
		ListPriceDisplay:       core.FormatCurrencyText(item.ListPrice),
		PricePaidDisplay:       core.FormatCurrencyText(item.PricePaid),
	}
}

// handleOptions returns the pick lists the forms and filters offer.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	type fieldOption struct {
		Name  string `json:"name"`
		Label string `json:"label"`
	}
	fields := make([]fieldOption, len(core.Fields))
	for i, f := range core.Fields {
		fields[i] = fieldOption{Name: f.Name, Label: f.Label}
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"categories":    core.Categories,
		"allCategories": core.AllCategories,
		"conditions":    core.Conditions,
		"sources":       core.Sources,
		"seasons":       core.Seasons,
		"sizes":         core.Sizes,
		"sortOptions":   core.SortOptions,
		"fields":        fields,
	})
}

// handleListItems runs a catalog query from URL parameters.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	res := core.Run(s.store.Items(), parseQuery(r))
	writeJSON(w, r, http.StatusOK, res)
}

// handleGetItem returns one item with computed prices.
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, core.ErrItemNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, newItemView(item))
}

// handleCreateItem adds an item from the add form.
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	form, err := decodeItemForm(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	item, err := core.NewItemFromForm(form, s.newID(), s.now().UnixMilli())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	s.store.Add(r.Context(), item)
	logging.FromContext(r.Context()).Info("item added", "id", item.ID, "category", item.Category)
	writeJSON(w, r, http.StatusCreated, newItemView(item))
}

// handleAddBlank inserts an empty row for table editing.
func (s *Server) handleAddBlank(w http.ResponseWriter, r *http.Request) {
	item := s.store.AddBlank(r.Context(), s.newID(), s.now().UnixMilli())
	writeJSON(w, r, http.StatusCreated, newItemView(item))
}

// handleUpdateItem applies the edit form to an existing item.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, core.ErrItemNotFound, http.StatusNotFound)
		return
	}

	form, err := decodeItemForm(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	item, err := core.MergeEdit(existing, form)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if err := s.store.Update(r.Context(), item); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, r, http.StatusOK, newItemView(item))
}

// handlePatchItem edits a single cell.
func (s *Server) handlePatchItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string      `json:"field"`
		Value looseString `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	item, err := s.store.SetField(r.Context(), chi.URLParam(r, "id"), req.Field, string(req.Value))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, r, http.StatusOK, newItemView(item))
}

// handleBulkEdit sets one field on many items.
func (s *Server) handleBulkEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs   []string    `json:"ids"`
		Field string      `json:"field"`
		Value looseString `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	updated, err := s.store.BulkEdit(r.Context(), req.IDs, req.Field, string(req.Value))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("bulk edit", "field", req.Field, "updated", updated)
	writeJSON(w, r, http.StatusOK, map[string]int{"updated": updated})
}

// handleDeleteItems removes the listed items. The client confirms first.
func (s *Server) handleDeleteItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	deleted := s.store.DeleteMany(r.Context(), req.IDs)
	if deleted > 0 {
		logging.FromContext(r.Context()).Info("items deleted", "requested", len(req.IDs), "deleted", deleted)
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"deleted": deleted})
}

// handlePricePaid computes the price paid the form fills in.
func (s *Server) handlePricePaid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListPrice     looseString `json:"listPrice"`
		ShippingPrice looseString `json:"shippingPrice"`
		Discount      looseString `json:"discount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	discounted := core.CalculateDiscountedPrice(string(req.ListPrice), string(req.Discount))
	paid := core.CalculatePricePaid(string(req.ListPrice), string(req.ShippingPrice), string(req.Discount))

	writeJSON(w, r, http.StatusOK, map[string]string{
		"pricePaid":       core.FormatPricePaid(paid),
		"display":         core.FormatCurrency(paid),
		"discountedPrice": core.FormatCurrency(discounted),
	})
}

// parseQuery reads catalog filters and ordering from URL parameters.
func parseQuery(r *http.Request) core.Query {
	v := r.URL.Query()
	return core.Query{
		Filter: core.Filter{
			Search:    v.Get("q"),
			Category:  v.Get("category"),
			Size:      v.Get("size"),
			Color:     v.Get("color"),
			Condition: v.Get("condition"),
			Source:    v.Get("source"),
			MinPrice:  parseBound(v.Get("minPrice")),
			MaxPrice:  parseBound(v.Get("maxPrice")),
		},
		Sort: core.ParseSortOption(v.Get("sort")),
	}
}

// parseBound returns nil for a blank or non-numeric price bound.
func parseBound(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)

	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: empty body", core.ErrInvalidRequest)
	default:
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
}

// decodeItemForm reads an add or edit form. Values are converted the same
// lenient way stored items are, so numeric prices are accepted.
func decodeItemForm(w http.ResponseWriter, r *http.Request) (core.Item, error) {
	var rec map[string]any
	if err := decodeJSON(w, r, &rec); err != nil {
		return core.Item{}, err
	}
	if rec == nil {
		return core.Item{}, fmt.Errorf("%w: expected an object", core.ErrInvalidRequest)
	}
	return core.ItemFromRecord(rec), nil
}

// looseString accepts a JSON string, number or null. Price fields arrive
// as whatever the client's input produced.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = looseString(x)
	case float64:
		*s = looseString(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		*s = looseString(strconv.FormatBool(x))
	default:
		return fmt.Errorf("expected a scalar, got %s", data)
	}
	return nil
}
