package repository

import (
	"context"

	"CourtSync/internal/interfaces"
	"CourtSync/internal/model"

	"gorm.io/gorm"
)

type preferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) interfaces.PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) ListPreferences(ctx context.Context) ([]model.UserPreference, error) {
	var prefs []model.UserPreference
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&prefs).Error; err != nil {
		return nil, err
	}
	return prefs, nil
}

func (r *preferenceRepository) ListPreferencesByEmail(ctx context.Context, email string) ([]model.UserPreference, error) {
	var prefs []model.UserPreference
	if err := r.db.WithContext(ctx).Where("email = ?", email).Order("date ASC, time ASC").Find(&prefs).Error; err != nil {
		return nil, err
	}
	return prefs, nil
}

// ReplacePreferences drops every subscription of the email and stores prefs in its place
func (r *preferenceRepository) ReplacePreferences(ctx context.Context, email string, prefs []model.UserPreference) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).Delete(&model.UserPreference{}).Error; err != nil {
			return err
		}
		if len(prefs) == 0 {
			return nil
		}
		for i := range prefs {
			prefs[i].Email = email
		}
		return tx.Create(&prefs).Error
	})
}
