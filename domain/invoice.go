package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceTypePurchase = "purchase"
	InvoiceTypeSale     = "sale"
)

// Storage key prefixes for invoice records.
const (
	PurchasePrefix = "purchase:"
	SalePrefix     = "sale:"
)

// InvoiceItem is one line of an invoice. The medicine name and unit are
// denormalized snapshots taken at posting time.
type InvoiceItem struct {
	MedicineID   string          `json:"medicineId"`
	MedicineName string          `json:"medicineName"`
	Quantity     int             `json:"quantity"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}

// Invoice is an immutable record of a posted purchase or sale. The total is
// stored as submitted by the client and is not recomputed from the lines.
type Invoice struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Items        []InvoiceItem   `json:"items"`
	Total        decimal.Decimal `json:"total"`
	SupplierName string          `json:"supplierName,omitempty"`
	CustomerName string          `json:"customerName,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}
