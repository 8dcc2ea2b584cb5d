package model

import "time"

// UserPreference subscription to one (date, time, location); replaced wholesale per email
type UserPreference struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Email     string    `gorm:"column:email;type:varchar(320);not null;index"`
	Date      string    `gorm:"column:date;type:varchar(10);not null"`
	Time      string    `gorm:"column:time;type:varchar(8);not null"` // HH:MM or HH:MM:SS
	Location  string    `gorm:"column:location;type:varchar(256);not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;autoCreateTime"`
}

func (UserPreference) TableName() string { return "preferences" }

// UserNotification transitions matched for one recipient in one run
type UserNotification struct {
	Email string
	Slots []TransitionSlot
}
