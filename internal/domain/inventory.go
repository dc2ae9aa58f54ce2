package domain

// VariantKey identifies one inventory ledger entry.
type VariantKey struct {
	ProductID string
	VariantID string
}

// InventoryEntry is the authoritative available-stock counter for a variant.
// AvailableStock already reflects all outstanding cart reservations and is
// never negative.
type InventoryEntry struct {
	Key            VariantKey
	AvailableStock int
}
