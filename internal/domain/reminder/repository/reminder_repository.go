package repository

import (
	"time"

	"github.com/oraharon2020/tavati-sub001/internal/domain/reminder/model"

	"gorm.io/gorm"
)

type ReminderRepository interface {
	CreateLog(log *model.ReminderLog) error
	// DeleteLogsBefore removes audit rows past their retention window.
	DeleteLogsBefore(before time.Time) (int64, error)
}

type reminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) CreateLog(log *model.ReminderLog) error {
	return r.db.Create(log).Error
}

func (r *reminderRepository) DeleteLogsBefore(before time.Time) (int64, error) {
	result := r.db.Unscoped().
		Where("created_at < ?", before).
		Delete(&model.ReminderLog{})
	return result.RowsAffected, result.Error
}
