package core

// store.go holds the inventory in memory and snapshots it to a BlobStore.
//
// Every mutation writes the whole collection back under the same key. The
// persisted value is a JSON array of item objects, newest first. Hydration
// never fails: missing or unreadable data starts an empty inventory.
//
// Item IDs are unique across the collection. Items that enter through
// hydration, Replace or ImportBatch with a blank or already taken ID get a
// fresh one.

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/wardrobe/internal/logging"
)

// StorageKey is the key the collection is persisted under.
const StorageKey = "clothing_inventory_items_v1"

// snapshotTimeout bounds one snapshot write.
const snapshotTimeout = 10 * time.Second

// BlobStore is a key-value store for opaque byte snapshots.
type BlobStore interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store is the inventory collection. Safe for concurrent use.
type Store struct {
	blobs BlobStore
	key   string

	// NewID replaces blank or duplicate IDs. Defaults to uuid.NewString.
	NewID func() string

	mu    sync.RWMutex
	items []Item
}

// NewStore hydrates the inventory from blobs. An empty key uses StorageKey.
func NewStore(ctx context.Context, blobs BlobStore, key string) *Store {
	if key == "" {
		key = StorageKey
	}
	s := &Store{blobs: blobs, key: key, NewID: uuid.NewString}
	s.items = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []Item {
	logger := logging.FromContext(ctx).With("key", s.key)

	data, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		logger.Warn("failed to read inventory, starting empty", "error", err)
		return []Item{}
	}
	if !ok {
		return []Item{}
	}

	items, err := decodeSnapshot(data)
	if err != nil {
		logger.Warn("stored inventory is not an item array, starting empty", "error", err)
		return []Item{}
	}

	if n := s.claimIDs(items, nil); n > 0 {
		logger.Warn("stored inventory had blank or duplicate ids, reassigned", "count", n)
		s.items = items
		s.persist(ctx)
	}

	logger.Info("inventory loaded", "items", len(items))
	return items
}

// claimIDs gives a fresh ID to every item whose ID is blank, in taken, or
// used by an earlier item of the slice. Returns how many were replaced.
func (s *Store) claimIDs(items []Item, taken map[string]struct{}) int {
	if taken == nil {
		taken = make(map[string]struct{}, len(items))
	}
	n := 0
	for i := range items {
		if _, dup := taken[items[i].ID]; dup || items[i].ID == "" {
			items[i].ID = s.NewID()
			n++
		}
		taken[items[i].ID] = struct{}{}
	}
	return n
}

// decodeSnapshot parses a persisted collection. Non-object elements are
// dropped; object elements are converted leniently.
func decodeSnapshot(data []byte) ([]Item, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		// JSON null
		return nil, ErrInvalidJSONFile
	}

	items := make([]Item, 0, len(raw))
	for _, elem := range raw {
		var rec map[string]any
		if err := json.Unmarshal(elem, &rec); err != nil || rec == nil {
			continue
		}
		items = append(items, ItemFromRecord(rec))
	}
	return items, nil
}

// persist writes the current collection. Callers hold s.mu.
// The write is detached from ctx cancellation: once a mutation is applied
// in memory it is saved even if the request that made it has gone away.
// A failed write is logged; the in-memory state stands.
func (s *Store) persist(ctx context.Context) {
	logger := logging.FromContext(ctx).With("key", s.key)

	data, err := json.Marshal(s.items)
	if err != nil {
		logger.Error("failed to encode inventory", "error", err)
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
	defer cancel()
	if err := s.blobs.Set(wctx, s.key, data); err != nil {
		logger.Error("failed to save inventory", "error", err, "items", len(s.items))
	}
}

// Add puts an item at the front of the collection.
func (s *Store) Add(ctx context.Context, item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = slices.Insert(s.items, 0, item)
	s.persist(ctx)
}

// Update replaces the item with the same ID in place.
func (s *Store) Update(ctx context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(item.ID)
	if i < 0 {
		return ErrItemNotFound
	}
	s.items[i] = item
	s.persist(ctx)
	return nil
}

// DeleteMany removes every item whose ID is listed. Unknown IDs are
// ignored. Returns the number of items removed.
func (s *Store) DeleteMany(ctx context.Context, ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(it Item) bool {
		_, ok := drop[it.ID]
		return ok
	})
	removed := before - len(s.items)
	if removed > 0 {
		s.persist(ctx)
	}
	return removed
}

// ImportBatch puts a batch in front of the existing items, keeping the
// batch order. Returns the number of items added.
func (s *Store) ImportBatch(ctx context.Context, batch []Item) int {
	if len(batch) == 0 {
		return 0
	}
	batch = slices.Clone(batch)

	s.mu.Lock()
	defer s.mu.Unlock()

	taken := make(map[string]struct{}, len(s.items)+len(batch))
	for _, it := range s.items {
		taken[it.ID] = struct{}{}
	}
	s.claimIDs(batch, taken)

	s.items = slices.Insert(s.items, 0, batch...)
	s.persist(ctx)
	return len(batch)
}

// SetField edits one cell of one item without validation.
func (s *Store) SetField(ctx context.Context, id, field, value string) (Item, error) {
	if _, ok := LookupField(field); !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Item{}, ErrItemNotFound
	}
	s.items[i].SetField(field, value)
	s.persist(ctx)
	return s.items[i], nil
}

// BulkEdit sets one field to the same value on every listed item.
// Returns the number of items changed.
func (s *Store) BulkEdit(ctx context.Context, ids []string, field, value string) (int, error) {
	if _, ok := LookupField(field); !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for i := range s.items {
		if _, ok := want[s.items[i].ID]; ok {
			s.items[i].SetField(field, value)
			n++
		}
	}
	if n > 0 {
		s.persist(ctx)
	}
	return n, nil
}

// AddBlank inserts the blank item template at the front.
func (s *Store) AddBlank(ctx context.Context, id string, createdAt int64) Item {
	item := BlankItem(id, createdAt)
	s.Add(ctx, item)
	return item
}

// Replace swaps the whole collection, as a JSON import does.
func (s *Store) Replace(ctx context.Context, items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = slices.Clone(items)
	if s.items == nil {
		s.items = []Item{}
	}
	s.claimIDs(s.items, nil)
	s.persist(ctx)
}

// Items returns a copy of the collection in storage order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Get returns the item with the given ID.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return Item{}, false
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(it Item) bool { return it.ID == id })
}
