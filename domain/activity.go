package domain

import "time"

// ActivityPrefix is the storage key prefix for activity records.
const ActivityPrefix = "activity:"

// Activity kinds emitted by the services.
const (
	ActivityMedicineAdded   = "medicine_added"
	ActivityMedicineUpdated = "medicine_updated"
	ActivityMedicineDeleted = "medicine_deleted"
	ActivityQuantityUpdated = "quantity_updated"
	ActivityPurchaseInvoice = "purchase_invoice"
	ActivitySaleInvoice     = "sale_invoice"
	ActivitySystemInit      = "system_init"
)

// Activity is an append-only audit record describing one mutating action.
type Activity struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details"`
	Timestamp   time.Time      `json:"timestamp"`
	UserID      string         `json:"userId"`
}
