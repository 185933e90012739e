// Package catalog manages the medicine inventory: CRUD over medicine records
// and derivation of the low-stock flag.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"saydalia/m/domain"
	"saydalia/m/internal/activity"
	"saydalia/m/internal/kvstore"
)

// Service exposes catalog operations over the key-value store.
type Service struct {
	store      *kvstore.Store
	activities *activity.Logger
}

// New constructs a Service.
func New(store *kvstore.Store, activities *activity.Logger) *Service {
	return &Service{store: store, activities: activities}
}

// CreateParams carries the fields of a new medicine. Quantity is a pointer so
// a missing field can be told apart from an explicit zero.
type CreateParams struct {
	Name     string
	Quantity *int
	Unit     string
	Category string
}

// UpdatePatch carries a partial update. Empty strings and a nil quantity mean
// "leave unchanged".
type UpdatePatch struct {
	Name     string
	Quantity *int
	Category string
}

// List returns all medicines in storage order.
func (s *Service) List(ctx context.Context) ([]domain.Medicine, error) {
	records, err := s.store.GetByPrefix(ctx, domain.MedicinePrefix)
	if err != nil {
		return nil, err
	}

	medicines := make([]domain.Medicine, 0, len(records))
	for _, raw := range records {
		var m domain.Medicine
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decoding medicine record: %w", err)
		}
		medicines = append(medicines, m)
	}
	return medicines, nil
}

// Create validates and stores a new medicine and logs a medicine_added
// activity.
func (s *Service) Create(ctx context.Context, p CreateParams) (*domain.Medicine, error) {
	if p.Name == "" || p.Unit == "" || p.Quantity == nil {
		return nil, &domain.ValidationError{Msg: "بيانات الدواء غير مكتملة"}
	}
	if p.Category == "" {
		p.Category = domain.CategoryMedicine
	}

	medicine := domain.Medicine{
		ID:        domain.NewID(domain.MedicinePrefix),
		Name:      p.Name,
		Quantity:  *p.Quantity,
		Unit:      p.Unit,
		Category:  p.Category,
		CreatedAt: time.Now().UTC(),
	}
	medicine.RecomputeLowStock()

	if err := s.store.Set(ctx, medicine.ID, medicine); err != nil {
		return nil, err
	}

	s.activities.Log(ctx, domain.ActivityMedicineAdded, "تم إضافة دواء جديد: "+medicine.Name, map[string]any{
		"medicineId": medicine.ID,
		"name":       medicine.Name,
		"quantity":   medicine.Quantity,
		"unit":       medicine.Unit,
		"category":   medicine.Category,
	})

	return &medicine, nil
}

// Update merges the provided fields into an existing medicine, re-derives the
// low-stock flag and stamps updatedAt. Exactly one activity is logged per
// call: medicine_updated when name or category changed, quantity_updated
// otherwise. Name/category takes precedence when both change in one call.
func (s *Service) Update(ctx context.Context, id string, patch UpdatePatch) (*domain.Medicine, error) {
	raw, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}

	var existing domain.Medicine
	if err := json.Unmarshal(raw, &existing); err != nil {
		return nil, fmt.Errorf("decoding medicine record: %w", err)
	}

	updated := existing
	if patch.Name != "" {
		updated.Name = patch.Name
	}
	if patch.Category != "" {
		updated.Category = patch.Category
	}
	if patch.Quantity != nil {
		updated.Quantity = *patch.Quantity
	}
	updated.RecomputeLowStock()
	now := time.Now().UTC()
	updated.UpdatedAt = &now

	if err := s.store.Set(ctx, id, updated); err != nil {
		return nil, err
	}

	if patch.Name != "" || patch.Category != "" {
		s.activities.Log(ctx, domain.ActivityMedicineUpdated, "تم تعديل الدواء: "+updated.Name, map[string]any{
			"medicineId": id,
			"oldData":    existing,
			"newData":    updated,
		})
	} else if patch.Quantity != nil {
		s.activities.Log(ctx, domain.ActivityQuantityUpdated, "تم تحديث كمية "+existing.Name, map[string]any{
			"medicineId":  id,
			"oldQuantity": existing.Quantity,
			"newQuantity": *patch.Quantity,
			"difference":  *patch.Quantity - existing.Quantity,
		})
	}

	return &updated, nil
}

// Delete removes a medicine outright and logs a snapshot of the deleted
// record.
func (s *Service) Delete(ctx context.Context, id string) error {
	raw, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if raw == nil {
		return domain.ErrNotFound
	}

	var existing domain.Medicine
	if err := json.Unmarshal(raw, &existing); err != nil {
		return fmt.Errorf("decoding medicine record: %w", err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.activities.Log(ctx, domain.ActivityMedicineDeleted, "تم حذف الدواء: "+existing.Name, map[string]any{
		"medicineId":      id,
		"deletedMedicine": existing,
	})

	return nil
}
