package model

import (
	"time"

	"gorm.io/datatypes"
)

// RunSummary result of one aggregation-diff-notify run
type RunSummary struct {
	RunID              string          `json:"run_id"`
	Success            bool            `json:"success"`
	TotalSlots         int             `json:"total_slots"`
	NewlyAvailable     int             `json:"newly_available"`
	NotificationsSent  int             `json:"notifications_sent"`
	Error              string          `json:"error,omitempty"`
	ProcessingTime     string          `json:"processing_time"`
	SampleSlots        []CanonicalSlot `json:"sample_slots,omitempty"`
	DatesProcessed     []string        `json:"dates_processed,omitempty"`
	ProvidersProcessed []string        `json:"providers_processed,omitempty"`
}

// SyncRun run history row
type SyncRun struct {
	ID         uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	RunUUID    string         `gorm:"column:run_uuid;type:varchar(64);uniqueIndex;not null"`
	Success    bool           `gorm:"column:success;type:boolean;not null"`
	TotalSlots int            `gorm:"column:total_slots;type:int;not null;default:0"`
	Newly      int            `gorm:"column:newly_available;type:int;not null;default:0"`
	Notified   int            `gorm:"column:notifications_sent;type:int;not null;default:0"`
	Error      *string        `gorm:"column:error;type:text"`
	Summary    datatypes.JSON `gorm:"column:summary;type:jsonb"`
	StartedAt  time.Time      `gorm:"column:started_at;type:timestamp;not null"`
	FinishedAt time.Time      `gorm:"column:finished_at;type:timestamp;not null"`
}

func (SyncRun) TableName() string { return "sync_runs" }
