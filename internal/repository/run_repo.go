package repository

import (
	"context"

	"CourtSync/internal/interfaces"
	"CourtSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) interfaces.RunRepository {
	return &runRepository{db: db}
}

// SaveRun stores a run row; a retried run id overwrites its earlier row
func (r *runRepository) SaveRun(ctx context.Context, run *model.SyncRun) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "run_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"success", "total_slots", "newly_available", "notifications_sent", "error", "summary", "finished_at",
		}),
	}).Create(run).Error
}
