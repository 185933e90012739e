package domain

import (
	"strconv"
	"time"
)

// LowStockThreshold is the quantity below which a medicine is flagged for reorder.
const LowStockThreshold = 10

// MedicinePrefix is the storage key prefix for medicine records.
const MedicinePrefix = "medicine:"

// Medicine categories shown in the app.
const (
	CategoryMedicine = "أدوية"
	CategoryVega     = "فيجا"
	CategorySlimming = "تخسيس"
)

type Medicine struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	Unit      string     `json:"unit"`
	Category  string     `json:"category"`
	LowStock  bool       `json:"lowStock"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// RecomputeLowStock re-derives the low-stock flag from the current quantity.
// Must be called after every quantity mutation.
func (m *Medicine) RecomputeLowStock() {
	m.LowStock = m.Quantity < LowStockThreshold
}

// NewID builds a storage key from a record prefix and the creation time,
// e.g. "medicine:1717171717171000000".
func NewID(prefix string) string {
	return prefix + strconv.FormatInt(time.Now().UnixNano(), 10)
}
