package repository

import (
	"encoding/json"
	"time"

	"github.com/oraharon2020/tavati-sub001/internal/domain/session/model"

	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(session *model.ClaimSession) error
	GetByID(id string) (*model.ClaimSession, error)
	ListByPhone(phone string) ([]model.ClaimSession, error)
	// UpdateContent applies a last-write-wins partial update to the mutable
	// content columns only. It never touches status or payment columns.
	UpdateContent(id string, updates map[string]interface{}) (int64, error)
	// AdvanceStatus moves the session to a strictly higher-ranked status as a
	// single conditional write. Returns false when the session was already at
	// or past the target.
	AdvanceStatus(id string, to string) (bool, error)
	// MarkPaid performs the guarded pre-payment → paid transition and
	// attaches the payment record. Returns true only for the first
	// transition; redeliveries report false, including after the session
	// has moved on to completed.
	MarkPaid(id string, record json.RawMessage, paidAt time.Time) (bool, error)
	Delete(session *model.ClaimSession) error
	// ListReminderCandidates returns in_progress sessions whose last
	// activity is older than cutoff and whose reminder_count matches
	// exactly. Only in_progress qualifies: drafts have no content worth
	// nudging about and pending_payment is outside the follow-up contract.
	ListReminderCandidates(cutoff time.Time, reminderCount int, limit int) ([]model.ClaimSession, error)
	// MarkReminderSent bumps the reminder counter only when it still holds
	// the value the scheduler saw, making overlapping runs safe.
	MarkReminderSent(id string, expectedCount int, at time.Time) (bool, error)
	// DeleteExpired hard-deletes sessions in the given statuses not updated
	// since before. Returns the number of rows removed.
	DeleteExpired(statuses []string, before time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *model.ClaimSession) error {
	return r.db.Create(session).Error
}

func (r *sessionRepository) GetByID(id string) (*model.ClaimSession, error) {
	var session model.ClaimSession
	if err := r.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ListByPhone(phone string) ([]model.ClaimSession, error) {
	var sessions []model.ClaimSession
	err := r.db.Where("phone = ?", phone).
		Order("updated_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) UpdateContent(id string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&model.ClaimSession{}).
		Where("id = ?", id).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *sessionRepository) AdvanceStatus(id string, to string) (bool, error) {
	priors := model.PriorStatuses(to)
	if len(priors) == 0 {
		return false, nil
	}
	result := r.db.Model(&model.ClaimSession{}).
		Where("id = ? AND status IN ?", id, priors).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *sessionRepository) MarkPaid(id string, record json.RawMessage, paidAt time.Time) (bool, error) {
	// Only pre-payment states match. A bare `status <> paid` would let a
	// redelivered webhook drag a completed session back to paid.
	result := r.db.Model(&model.ClaimSession{}).
		Where("id = ? AND status IN ?", id, model.PriorStatuses(model.StatusPaid)).
		Updates(map[string]interface{}{
			"status":         model.StatusPaid,
			"payment_record": record,
			"paid_at":        paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *sessionRepository) Delete(session *model.ClaimSession) error {
	return r.db.Delete(session).Error
}

func (r *sessionRepository) ListReminderCandidates(cutoff time.Time, reminderCount int, limit int) ([]model.ClaimSession, error) {
	var sessions []model.ClaimSession
	err := r.db.
		Where("status = ?", model.StatusInProgress).
		Where("updated_at <= ?", cutoff).
		Where("reminder_count = ?", reminderCount).
		Order("updated_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) MarkReminderSent(id string, expectedCount int, at time.Time) (bool, error) {
	// UpdateColumns on purpose: reminder bookkeeping must not touch
	// updated_at, which measures user activity for tier eligibility.
	result := r.db.Model(&model.ClaimSession{}).
		Where("id = ? AND reminder_count = ?", id, expectedCount).
		UpdateColumns(map[string]interface{}{
			"reminder_count":   gorm.Expr("reminder_count + 1"),
			"reminder_sent_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *sessionRepository) DeleteExpired(statuses []string, before time.Time) (int64, error) {
	result := r.db.Unscoped().
		Where("status IN ?", statuses).
		Where("updated_at < ?", before).
		Delete(&model.ClaimSession{})
	return result.RowsAffected, result.Error
}
