package catalog

import (
	"context"
	"time"

	"saydalia/m/domain"
	"saydalia/m/internal/kvstore"
)

type sampleMedicine struct {
	id       string
	name     string
	quantity int
	category string
}

var sampleMedicines = []sampleMedicine{
	{"medicine:1", "باراسيتامول 500 مجم", 25, domain.CategoryMedicine},
	{"medicine:2", "أموكسيسيلين 250 مجم", 8, domain.CategoryMedicine},
	{"medicine:3", "فيتامين سي 1000 مجم", 18, domain.CategoryVega},
	{"medicine:4", "إيبوبروفين 200 مجم", 5, domain.CategoryMedicine},
	{"medicine:5", "أوميجا 3", 12, domain.CategoryVega},
	{"medicine:6", "شراب الكحة للأطفال", 3, domain.CategoryMedicine},
	{"medicine:7", "جرين كوفي للتخسيس", 15, domain.CategorySlimming},
	{"medicine:8", "كبسولات حرق الدهون", 7, domain.CategorySlimming},
	{"medicine:9", "فيتامينات متعددة للنساء", 20, domain.CategoryVega},
}

// InitSampleData seeds the nine sample medicines when the catalog is empty
// and logs one system_init activity. Calling it again is a no-op.
func (s *Service) InitSampleData(ctx context.Context) error {
	existing, err := s.store.GetByPrefix(ctx, domain.MedicinePrefix)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	createdAt := time.Now().UTC()
	err = s.store.Update(ctx, func(tx *kvstore.Tx) error {
		for _, sample := range sampleMedicines {
			medicine := domain.Medicine{
				ID:        sample.id,
				Name:      sample.name,
				Quantity:  sample.quantity,
				Unit:      "علبة",
				Category:  sample.category,
				CreatedAt: createdAt,
			}
			medicine.RecomputeLowStock()
			if err := tx.Set(ctx, medicine.ID, medicine); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.activities.Log(ctx, domain.ActivitySystemInit, "تم تهيئة البيانات الأولية للنظام مع الفئات", map[string]any{
		"medicinesCount": len(sampleMedicines),
		"categories":     []string{domain.CategoryMedicine, domain.CategoryVega, domain.CategorySlimming},
	})

	return nil
}
