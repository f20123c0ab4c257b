// Package core provides the business logic for the clothing inventory.
//
// The package has no knowledge of HTTP or of any particular database. It
// can be used by the web handlers, by tests, or by a one-off tool without
// modification.
//
// # Items
//
// An [Item] is a flat record of text fields described by [Fields]. Prices
// and discounts keep the text the user typed; [ParsePrice] and friends read
// them leniently and treat unparseable input as zero.
//
// # CSV Import
//
// [Importer.ParseCSV] reads a spreadsheet export in one pass:
//
//  1. The stream is wrapped by [WrapCSVReader] (BOM skip, UTF-8 cleanup)
//  2. The header row is reconciled to canonical fields by [BuildHeaderMap]
//  3. Each row becomes an item; rows without content are skipped
//
// Nothing touches the store until the whole file has parsed, so a broken
// file leaves the inventory unchanged.
//
// # Store
//
// [Store] keeps the collection in memory, newest first, and snapshots it as
// a JSON array to a [BlobStore] after every mutation. Snapshot failures are
// logged rather than returned.
//
// # Catalog Queries
//
// [Run] filters, sorts and groups items for display:
//
//	res := core.Run(store.Items(), core.Query{
//	    Filter: core.Filter{Search: "blue", Category: "Pants"},
//	    Sort:   core.SortPriceLowHigh,
//	})
//
// # Error Handling
//
// Errors that reach a user go through [MapError], which returns a message,
// a suggested action and a short code:
//
//   - FILE001-FILE004: File errors (size, unreadable, missing)
//   - IMP001-IMP002: Import errors (no rows, bad JSON document)
//   - VAL003, VAL006: Form validation
//   - ITM001-ITM002: Item lookup and field names
//   - REQ001: Malformed request body
//   - ERR000: Unknown error (check logs)
package core
