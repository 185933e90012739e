// Package invoicing posts purchase and sale invoices and applies the
// corresponding stock adjustments to the catalog.
package invoicing

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"saydalia/m/domain"
	"saydalia/m/internal/activity"
	"saydalia/m/internal/kvstore"
)

// Service posts and lists invoices.
type Service struct {
	store      *kvstore.Store
	activities *activity.Logger
}

// New constructs a Service.
func New(store *kvstore.Store, activities *activity.Logger) *Service {
	return &Service{store: store, activities: activities}
}

// List groups all posted invoices, with the combined list sorted newest
// first.
type List struct {
	Purchases []domain.Invoice `json:"purchases"`
	Sales     []domain.Invoice `json:"sales"`
	All       []domain.Invoice `json:"all"`
}

// PostPurchase records a purchase invoice and adds each line quantity to the
// referenced medicine. Lines referencing a medicine that no longer exists are
// skipped; the invoice stands either way. The invoice record and all stock
// adjustments commit in one transaction.
func (s *Service) PostPurchase(ctx context.Context, items []domain.InvoiceItem, total decimal.Decimal, supplierName string) (*domain.Invoice, error) {
	if len(items) == 0 {
		return nil, &domain.ValidationError{Msg: "عناصر الفاتورة مطلوبة"}
	}

	invoice := domain.Invoice{
		ID:           domain.NewID(domain.PurchasePrefix),
		Type:         domain.InvoiceTypePurchase,
		Items:        items,
		Total:        total,
		SupplierName: supplierName,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.store.Update(ctx, func(tx *kvstore.Tx) error {
		if err := tx.Set(ctx, invoice.ID, invoice); err != nil {
			return err
		}
		for _, item := range items {
			medicine, err := getMedicine(ctx, tx, item.MedicineID)
			if err != nil {
				return err
			}
			if medicine == nil {
				continue
			}
			medicine.Quantity += item.Quantity
			if err := saveMedicine(ctx, tx, medicine); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activities.Log(ctx, domain.ActivityPurchaseInvoice, "تم إنشاء فاتورة شراء من "+supplierName, map[string]any{
		"invoiceId":    invoice.ID,
		"supplierName": supplierName,
		"total":        total,
		"itemsCount":   len(items),
	})

	return &invoice, nil
}

// PostSale records a sale invoice and subtracts each line quantity from the
// referenced medicine. A missing or under-stocked medicine fails the whole
// call with InsufficientStockError and rolls back every write; availability
// is checked on the same read that feeds the decrement.
func (s *Service) PostSale(ctx context.Context, items []domain.InvoiceItem, total decimal.Decimal, customerName string) (*domain.Invoice, error) {
	if len(items) == 0 {
		return nil, &domain.ValidationError{Msg: "عناصر الفاتورة مطلوبة"}
	}

	invoice := domain.Invoice{
		ID:           domain.NewID(domain.SalePrefix),
		Type:         domain.InvoiceTypeSale,
		Items:        items,
		Total:        total,
		CustomerName: customerName,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.store.Update(ctx, func(tx *kvstore.Tx) error {
		medicines := make([]*domain.Medicine, len(items))
		for i, item := range items {
			medicine, err := getMedicine(ctx, tx, item.MedicineID)
			if err != nil {
				return err
			}
			if medicine == nil || medicine.Quantity < item.Quantity {
				return &domain.InsufficientStockError{MedicineName: item.MedicineName}
			}
			medicines[i] = medicine
		}

		if err := tx.Set(ctx, invoice.ID, invoice); err != nil {
			return err
		}
		for i, item := range items {
			medicines[i].Quantity -= item.Quantity
			if err := saveMedicine(ctx, tx, medicines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activities.Log(ctx, domain.ActivitySaleInvoice, "تم إنشاء فاتورة بيع للعميل "+customerName, map[string]any{
		"invoiceId":    invoice.ID,
		"customerName": customerName,
		"total":        total,
		"itemsCount":   len(items),
	})

	return &invoice, nil
}

// ListInvoices returns purchases and sales separately and combined, the
// combined list sorted newest first.
func (s *Service) ListInvoices(ctx context.Context) (*List, error) {
	purchases, err := s.listByPrefix(ctx, domain.PurchasePrefix)
	if err != nil {
		return nil, err
	}
	sales, err := s.listByPrefix(ctx, domain.SalePrefix)
	if err != nil {
		return nil, err
	}

	all := make([]domain.Invoice, 0, len(purchases)+len(sales))
	all = append(all, purchases...)
	all = append(all, sales...)
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return &List{Purchases: purchases, Sales: sales, All: all}, nil
}

func (s *Service) listByPrefix(ctx context.Context, prefix string) ([]domain.Invoice, error) {
	records, err := s.store.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	invoices := make([]domain.Invoice, 0, len(records))
	for _, raw := range records {
		var inv domain.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("decoding invoice record: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func getMedicine(ctx context.Context, tx *kvstore.Tx, id string) (*domain.Medicine, error) {
	raw, err := tx.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var medicine domain.Medicine
	if err := json.Unmarshal(raw, &medicine); err != nil {
		return nil, fmt.Errorf("decoding medicine record: %w", err)
	}
	return &medicine, nil
}

func saveMedicine(ctx context.Context, tx *kvstore.Tx, medicine *domain.Medicine) error {
	medicine.RecomputeLowStock()
	now := time.Now().UTC()
	medicine.UpdatedAt = &now
	return tx.Set(ctx, medicine.ID, *medicine)
}
