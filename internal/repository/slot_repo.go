package repository

import (
	"context"

	"CourtSync/internal/interfaces"
	"CourtSync/internal/model"

	"gorm.io/gorm"
)

const insertBatchSize = 500

type slotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) interfaces.SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) ListSlots(ctx context.Context) ([]model.StoredSlot, error) {
	var slots []model.StoredSlot
	if err := r.db.WithContext(ctx).Order("date ASC, time ASC, location ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// ReplaceSlots swaps the whole snapshot in one transaction; an empty input clears it
func (r *slotRepository) ReplaceSlots(ctx context.Context, slots []model.CanonicalSlot) error {
	rows := make([]model.StoredSlot, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, model.NewStoredSlot(s))
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.StoredSlot{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, insertBatchSize).Error
	})
}
