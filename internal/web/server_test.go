package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/wardrobe/internal/blob"
	"github.com/JonMunkholm/wardrobe/internal/config"
	"github.com/JonMunkholm/wardrobe/internal/core"
)

const testNow = 1_700_000_000_000

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 1,
			MaxWait:       20 * time.Millisecond,
		},
		Images: config.ImageConfig{
			MaxDimension: 32,
			JPEGQuality:  80,
			MaxFileSize:  1 << 20,
		},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

type testServer struct {
	*Server
	blobs *blob.Memory
}

// newTestServer returns a server with sequential IDs and a fixed clock.
func newTestServer(t *testing.T, cfg *config.Config, seed ...core.Item) *testServer {
	t.Helper()
	ctx := context.Background()

	blobs := blob.NewMemory()
	if len(seed) > 0 {
		data, err := json.Marshal(seed)
		if err != nil {
			t.Fatalf("marshal seed: %v", err)
		}
		blobs.Set(ctx, core.StorageKey, data)
	}

	store := core.NewStore(ctx, blobs, core.StorageKey)
	s := NewServer(cfg, store, blobs)

	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	s.now = func() time.Time { return time.UnixMilli(testNow) }
	s.importer = &core.Importer{NewID: s.newID, Now: s.now}

	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return &testServer{Server: s, blobs: blobs}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(data))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, r)
	return rec
}

func (ts *testServer) upload(t *testing.T, path, field, filename string, data []byte, extra map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		mw.WriteField(k, v)
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(data)
	}
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Code != code {
		t.Errorf("code = %q, want %q", resp.Code, code)
	}
	return resp
}

func fleece() core.Item {
	return core.Item{
		ID:        "seed-1",
		CreatedAt: 1,
		Name:      "R1 Fleece",
		Category:  "Fleece & Knits",
		Color:     "Blue",
		ListPrice: "$100",
		Discount:  "20",
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["items"] != float64(1) {
		t.Errorf("items = %v, want 1", resp["items"])
	}
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("dial tcp: connection refused") }

func TestHealth_StorageDown(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ts.storage = downPinger{}

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["storage"] != "Inventory storage is unavailable" {
		t.Errorf("storage = %v", resp["storage"])
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestOptions(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.do(t, http.MethodGet, "/api/options", nil)
	resp := decode[struct {
		Categories    []string `json:"categories"`
		AllCategories []string `json:"allCategories"`
		SortOptions   []string `json:"sortOptions"`
		Fields        []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}](t, rec)

	if len(resp.Categories) != len(core.Categories) {
		t.Errorf("categories = %d, want %d", len(resp.Categories), len(core.Categories))
	}
	if resp.AllCategories[0] != core.CategoryAll {
		t.Errorf("allCategories[0] = %q, want All", resp.AllCategories[0])
	}
	if len(resp.SortOptions) != 4 || resp.SortOptions[0] != "Newest" {
		t.Errorf("sortOptions = %v", resp.SortOptions)
	}
	if len(resp.Fields) != len(core.Fields) {
		t.Errorf("fields = %d, want %d", len(resp.Fields), len(core.Fields))
	}
}

func TestCreateItem(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.do(t, http.MethodPost, "/api/items", map[string]any{
		"name":      "Capilene Tee",
		"category":  "Short-Sleeve Tees",
		"listPrice": 40,
		"discount":  "25",
		"id":        "client-chosen",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	got := decode[itemView](t, rec)
	if got.ID != "id-1" {
		t.Errorf("ID = %q, want server-assigned id-1", got.ID)
	}
	if got.CreatedAt != testNow {
		t.Errorf("CreatedAt = %d, want %d", got.CreatedAt, int64(testNow))
	}
	if got.ListPrice != "40" {
		t.Errorf("ListPrice = %q, want numeric input kept as text", got.ListPrice)
	}
	if got.DiscountedPriceDisplay != "$30.00" {
		t.Errorf("DiscountedPriceDisplay = %q, want $30.00", got.DiscountedPriceDisplay)
	}

	items := ts.store.Items()
	if len(items) != 2 || items[0].ID != "id-1" {
		t.Errorf("new item not at front: %v", items)
	}
}

func TestCreateItem_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
		code string
	}{
		{"missing name", map[string]any{"category": "Pants"}, "VAL003"},
		{"blank category", map[string]any{"name": "Shorts", "category": "  "}, "VAL003"},
		{"unknown category", map[string]any{"name": "Hat", "category": "Hats"}, "VAL006"},
		{"not an object", []string{"x"}, "REQ001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, testConfig())
			rec := ts.do(t, http.MethodPost, "/api/items", tt.body)
			expectError(t, rec, http.StatusBadRequest, tt.code)

			if ts.store.Len() != 0 {
				t.Error("rejected form was stored")
			}
		})
	}
}

func TestCreateItem_ValidationFields(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.do(t, http.MethodPost, "/api/items", map[string]any{})
	resp := expectError(t, rec, http.StatusBadRequest, "VAL003")
	if resp.Message != "Item name and category are required." {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.Fields) != 2 {
		t.Errorf("fields = %v, want name and category", resp.Fields)
	}
}

func TestCreateItem_EmptyBody(t *testing.T) {
	ts := newTestServer(t, testConfig())

	r := httptest.NewRequest(http.MethodPost, "/api/items", nil)
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, r)

	expectError(t, rec, http.StatusBadRequest, "REQ001")
}

func TestGetItem(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.do(t, http.MethodGet, "/api/items/seed-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decode[itemView](t, rec)
	if got.DiscountedPrice != 80 {
		t.Errorf("DiscountedPrice = %v, want 80", got.DiscountedPrice)
	}
	if got.ListPriceDisplay != "$100.00" {
		t.Errorf("ListPriceDisplay = %q", got.ListPriceDisplay)
	}

	rec = ts.do(t, http.MethodGet, "/api/items/missing", nil)
	expectError(t, rec, http.StatusNotFound, "ITM001")
}

func TestUpdateItem_PreservesIdentity(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.do(t, http.MethodPut, "/api/items/seed-1", map[string]any{
		"id":        "other",
		"createdAt": 999,
		"name":      "R1 Air",
		"category":  "Fleece & Knits",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	item, ok := ts.store.Get("seed-1")
	if !ok {
		t.Fatal("item lost its ID")
	}
	if item.Name != "R1 Air" || item.CreatedAt != 1 {
		t.Errorf("item = %+v", item)
	}
	if item.Color != "" {
		t.Errorf("Color = %q, edit form replaces every field", item.Color)
	}

	rec = ts.do(t, http.MethodPut, "/api/items/missing", map[string]any{"name": "x", "category": "Pants"})
	expectError(t, rec, http.StatusNotFound, "ITM001")

	rec = ts.do(t, http.MethodPut, "/api/items/seed-1", map[string]any{"name": ""})
	expectError(t, rec, http.StatusBadRequest, "VAL003")
}

func TestPatchItem(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.do(t, http.MethodPatch, "/api/items/seed-1", map[string]any{"field": "discount", "value": 50})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if got := decode[itemView](t, rec); got.DiscountedPrice != 50 {
		t.Errorf("DiscountedPrice = %v, want 50", got.DiscountedPrice)
	}

	// Table edits skip form validation.
	rec = ts.do(t, http.MethodPatch, "/api/items/seed-1", map[string]any{"field": "category", "value": "Anything"})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	rec = ts.do(t, http.MethodPatch, "/api/items/seed-1", map[string]any{"field": "id", "value": "x"})
	expectError(t, rec, http.StatusBadRequest, "ITM002")

	rec = ts.do(t, http.MethodPatch, "/api/items/missing", map[string]any{"field": "name", "value": "x"})
	expectError(t, rec, http.StatusNotFound, "ITM001")
}

func TestBlankBulkEditDelete(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.do(t, http.MethodPost, "/api/items/blank", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("blank status = %d", rec.Code)
	}
	blank := decode[itemView](t, rec)
	if blank.Category != core.DefaultCategory || blank.Name != "" {
		t.Errorf("blank = %+v", blank.Item)
	}

	rec = ts.do(t, http.MethodPost, "/api/items/bulk-edit", map[string]any{
		"ids":   []string{"seed-1", blank.ID, "missing"},
		"field": "season",
		"value": "Fall",
	})
	if got := decode[map[string]int](t, rec); got["updated"] != 2 {
		t.Errorf("updated = %d, want 2", got["updated"])
	}
	for _, it := range ts.store.Items() {
		if it.Season != "Fall" {
			t.Errorf("item %s season = %q", it.ID, it.Season)
		}
	}

	rec = ts.do(t, http.MethodPost, "/api/items/bulk-edit", map[string]any{"ids": []string{"seed-1"}, "field": "bogus"})
	expectError(t, rec, http.StatusBadRequest, "ITM002")

	rec = ts.do(t, http.MethodPost, "/api/items/delete", map[string]any{"ids": []string{"seed-1", "missing"}})
	if got := decode[map[string]int](t, rec); got["deleted"] != 1 {
		t.Errorf("deleted = %d, want 1", got["deleted"])
	}
	if ts.store.Len() != 1 {
		t.Errorf("Len = %d, want 1", ts.store.Len())
	}
}

func TestListItems(t *testing.T) {
	seed := []core.Item{
		{ID: "a", CreatedAt: 3, Name: "Baggies", Category: "Shorts", ListPrice: "60"},
		{ID: "b", CreatedAt: 2, Name: "Torrentshell", Category: "Rain/Shells", ListPrice: "180", Discount: "50"},
		{ID: "c", CreatedAt: 1, Name: "Airshed", Category: "Rain/Shells", ListPrice: "150"},
	}
	ts := newTestServer(t, testConfig(), seed...)

	tests := []struct {
		name      string
		query     string
		wantState core.ResultState
		wantIDs   []string
	}{
		{"default", "", core.StateResults, []string{"a", "b", "c"}},
		{"category", "?category=Rain%2FShells", core.StateResults, []string{"b", "c"}},
		{"price low to high", "?sort=price_asc", core.StateResults, []string{"a", "b", "c"}},
		{"price high to low", "?sort=" + "Price%3A+High+to+Low", core.StateResults, []string{"c", "b", "a"}},
		{"alphabetical groups by first appearance", "?sort=Alphabetical", core.StateResults, []string{"c", "b", "a"}},
		{"max price", "?maxPrice=90", core.StateResults, []string{"a", "b"}},
		{"bad bound ignored", "?minPrice=abc", core.StateResults, []string{"a", "b", "c"}},
		{"search", "?q=torrent", core.StateResults, []string{"b"}},
		{"no matches", "?q=zzz", core.StateNoMatches, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/api/items"+tt.query, nil)
			res := decode[core.QueryResult](t, rec)

			if res.State != tt.wantState {
				t.Errorf("State = %q, want %q", res.State, tt.wantState)
			}
			if res.Total != 3 {
				t.Errorf("Total = %d, want 3", res.Total)
			}
			var got []string
			for _, g := range res.Groups {
				for _, it := range g.Items {
					got = append(got, it.ID)
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestListItems_EmptyStore(t *testing.T) {
	ts := newTestServer(t, testConfig())

	res := decode[core.QueryResult](t, ts.do(t, http.MethodGet, "/api/items", nil))
	if res.State != core.StateEmpty {
		t.Errorf("State = %q, want empty", res.State)
	}
	if res.Groups == nil {
		t.Error("Groups should encode as [] not null")
	}
}

func TestPricePaid(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"text inputs", map[string]any{"listPrice": "$100", "shippingPrice": "5", "discount": "20"}, "85.00"},
		{"numeric inputs", map[string]any{"listPrice": 50, "shippingPrice": 0, "discount": 10}, "45.00"},
		{"garbage is zero", map[string]any{"listPrice": "abc", "shippingPrice": "x"}, "0.00"},
		{"nulls", map[string]any{"listPrice": nil}, "0.00"},
	}

	ts := newTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/price-paid", tt.body)
			if got := decode[map[string]string](t, rec); got["pricePaid"] != tt.want {
				t.Errorf("pricePaid = %q, want %q", got["pricePaid"], tt.want)
			}
		})
	}

	rec := ts.do(t, http.MethodPost, "/api/price-paid", map[string]any{"listPrice": []int{1}})
	expectError(t, rec, http.StatusBadRequest, "REQ001")
}

func TestImportCSV(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	csv := "\ufeffItem Name,Category,List Price,Mystery\n" +
		"Nano Puff,Insulation,$199,x\n" +
		",,,\n" +
		"Rain Shell,,80,y\n"

	rec := ts.upload(t, "/api/import/csv", "file", "inventory.csv", []byte(csv), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	summary := decode[core.ImportSummary](t, rec)
	if summary.Imported != 2 || summary.Skipped != 1 || summary.TotalRows != 3 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Unmapped) != 1 || summary.Unmapped[0] != "Mystery" {
		t.Errorf("Unmapped = %v", summary.Unmapped)
	}

	items := ts.store.Items()
	if len(items) != 3 {
		t.Fatalf("Len = %d, want 3", len(items))
	}
	if items[0].Name != "Nano Puff" || items[1].Name != "Rain Shell" || items[2].ID != "seed-1" {
		t.Errorf("order = %s, %s, %s", items[0].Name, items[1].Name, items[2].ID)
	}
	if items[1].Category != core.DefaultCategory {
		t.Errorf("Category = %q, want default", items[1].Category)
	}
	if items[0].CreatedAt != testNow || items[1].CreatedAt != testNow+2 {
		t.Errorf("CreatedAt = %d, %d", items[0].CreatedAt, items[1].CreatedAt)
	}
}

func TestImportCSV_Errors(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		data   string
		status int
		code   string
	}{
		{"header only", "file", "Name,Category\n", http.StatusBadRequest, "IMP001"},
		{"no mapped columns", "file", "foo,bar\n1,2\n", http.StatusBadRequest, "IMP001"},
		{"missing file", "", "", http.StatusBadRequest, "FILE004"},
		{"wrong field name", "upload", "Name\nx\n", http.StatusBadRequest, "FILE004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, testConfig(), fleece())
			rec := ts.upload(t, "/api/import/csv", tt.field, "x.csv", []byte(tt.data), nil)
			expectError(t, rec, tt.status, tt.code)

			if ts.store.Len() != 1 {
				t.Errorf("store changed on failed import: Len = %d", ts.store.Len())
			}
		})
	}
}

func TestImportCSV_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 512
	ts := newTestServer(t, cfg)

	big := "Name\n" + strings.Repeat("x,\n", 1024)
	rec := ts.upload(t, "/api/import/csv", "file", "big.csv", []byte(big), nil)
	expectError(t, rec, http.StatusRequestEntityTooLarge, "FILE001")
}

func TestImportCSV_TooManyImports(t *testing.T) {
	ts := newTestServer(t, testConfig())

	if !ts.imports.TryAcquire() {
		t.Fatal("could not take the only import slot")
	}
	defer ts.imports.Release()

	rec := ts.upload(t, "/api/import/csv", "file", "x.csv", []byte("Name\nTee\n"), nil)
	expectError(t, rec, http.StatusServiceUnavailable, "UPL002")
}

func TestImportJSON(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	doc := `[{"id":"x1","createdAt":5,"name":"Synchilla","category":"Fleece & Knits","listPrice":89},"junk",null]`
	rec := ts.upload(t, "/api/import/json", "file", "backup.json", []byte(doc), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]int](t, rec); got["imported"] != 1 {
		t.Errorf("imported = %d, want 1", got["imported"])
	}

	items := ts.store.Items()
	if len(items) != 1 || items[0].ID != "x1" || items[0].ListPrice != "89" {
		t.Errorf("items = %+v", items)
	}

	rec = ts.upload(t, "/api/import/json", "file", "bad.json", []byte(`{"items":[]}`), nil)
	expectError(t, rec, http.StatusBadRequest, "IMP002")
	if ts.store.Len() != 1 {
		t.Error("failed JSON import changed the store")
	}
}

func TestImportJSON_BlankAndDuplicateIDs(t *testing.T) {
	ts := newTestServer(t, testConfig())

	doc := `[{"name":"A"},{"name":"B"},{"id":"x","name":"C"},{"id":"x","name":"D"}]`
	rec := ts.upload(t, "/api/import/json", "file", "backup.json", []byte(doc), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}

	seen := map[string]int{}
	for _, it := range ts.store.Items() {
		seen[it.ID]++
	}
	if len(seen) != 4 || seen[""] != 0 || seen["x"] != 1 {
		t.Errorf("ids = %v, want 4 distinct non-blank", seen)
	}

	rec = ts.do(t, http.MethodPost, "/api/items/delete", map[string][]string{"ids": {"x"}})
	if got := decode[map[string]int](t, rec); got["deleted"] != 1 {
		t.Errorf("deleted = %d, want 1", got["deleted"])
	}
}

func TestExportJSON_RoundTrip(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.do(t, http.MethodGet, "/api/export/json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, core.ExportFilename) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	exported := rec.Body.Bytes()
	other := newTestServer(t, testConfig())
	rec = other.upload(t, "/api/import/json", "file", core.ExportFilename, exported, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-import status = %d (body %s)", rec.Code, rec.Body.String())
	}
	got := other.store.Items()
	if len(got) != 1 || got[0] != fleece() {
		t.Errorf("round trip = %+v, want %+v", got, fleece())
	}
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.do(t, http.MethodGet, "/api/export/csv", nil)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header and one row", len(lines))
	}
	if lines[0] != strings.Join(core.FieldNames(), ",") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "R1 Fleece") {
		t.Errorf("row = %q", lines[1])
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadImage(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.upload(t, "/api/images", "image", "photo.png", pngBytes(t, 64, 32), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Image  string `json:"image"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}](t, rec)
	if !strings.HasPrefix(resp.Image, "data:image/jpeg;base64,") {
		t.Errorf("image = %.40q", resp.Image)
	}
	if resp.Width != 32 || resp.Height != 16 {
		t.Errorf("size = %dx%d, want 32x16", resp.Width, resp.Height)
	}

	if item, _ := ts.store.Get("seed-1"); item.Image != "" {
		t.Error("image stored without an id")
	}
}

func TestUploadImage_AttachToItem(t *testing.T) {
	ts := newTestServer(t, testConfig(), fleece())

	rec := ts.upload(t, "/api/images", "image", "photo.png", pngBytes(t, 8, 8), map[string]string{"id": "seed-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	item, _ := ts.store.Get("seed-1")
	if !strings.HasPrefix(item.Image, "data:image/jpeg;base64,") {
		t.Errorf("stored image = %.40q", item.Image)
	}

	rec = ts.upload(t, "/api/images", "image", "photo.png", pngBytes(t, 8, 8), map[string]string{"id": "missing"})
	expectError(t, rec, http.StatusNotFound, "ITM001")
}

func TestUploadImage_Unsupported(t *testing.T) {
	ts := newTestServer(t, testConfig())

	rec := ts.upload(t, "/api/images", "image", "notes.txt", []byte("just some text"), nil)
	expectError(t, rec, http.StatusUnsupportedMediaType, "IMG001")
}

func TestCatalogPage(t *testing.T) {
	seed := fleece()
	seed.Name = `<script>alert("x")</script>`
	ts := newTestServer(t, testConfig(), seed)

	rec := ts.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<script>alert") {
		t.Error("item name was not escaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("escaped item name missing")
	}
	if !strings.Contains(body, "$80.00") {
		t.Error("discounted price missing")
	}
	if !strings.Contains(body, "Fleece &amp; Knits") {
		t.Error("category heading missing")
	}
}

func TestCatalogPage_States(t *testing.T) {
	tests := []struct {
		name  string
		seed  []core.Item
		query string
		want  string
	}{
		{"empty store", nil, "", "No items yet"},
		{"empty store with filter", nil, "?q=x", "No items match your filters"},
		{"no matches", []core.Item{fleece()}, "?category=Pants", "No items match your filters"},
		{"untitled", []core.Item{{ID: "u", Category: "Pants"}}, "", "Untitled item"},
		{"no price", []core.Item{{ID: "u", Name: "Free", Category: "Pants"}}, "", "Price N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, testConfig(), tt.seed...)
			rec := ts.do(t, http.MethodGet, "/"+tt.query, nil)
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("page missing %q", tt.want)
			}
		})
	}
}

func TestRespondError_Formats(t *testing.T) {
	ts := newTestServer(t, testConfig())

	r := httptest.NewRequest(http.MethodGet, "/api/items/missing", nil)
	r.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, r)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("HTMX Content-Type = %q", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, `role="alert"`) || !strings.Contains(body, "ITM001") {
		t.Errorf("HTMX body = %q", body)
	}

	r = httptest.NewRequest(http.MethodGet, "/missing-page", nil)
	rec = httptest.NewRecorder()
	respondError(rec, r, core.ErrItemNotFound, http.StatusNotFound)
	if body := rec.Body.String(); !strings.Contains(body, "Item not found (Code: ITM001). The item may have been deleted") {
		t.Errorf("plain body = %q", body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrItemNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: x", core.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{core.ErrNoValidRows, http.StatusBadRequest},
		{core.ValidateItemForm(core.Item{}), http.StatusBadRequest},
		{core.ErrUnsupportedImage, http.StatusUnsupportedMediaType},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	ts := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		if rec := ts.do(t, http.MethodGet, "/api/items", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := ts.do(t, http.MethodGet, "/api/items", nil)
	expectError(t, rec, http.StatusTooManyRequests, "RATE001")
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestRateLimiter_Window(t *testing.T) {
	now := time.Unix(0, 0)
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Error("third request in the window should be limited")
	}
	if !rl.allow("b") {
		t.Error("other clients have their own budget")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Error("budget should reset after the window")
	}

	now = now.Add(5 * time.Minute)
	rl.sweep()
	rl.mu.Lock()
	n := len(rl.visitors)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("visitors after sweep = %d, want 0", n)
	}
}
