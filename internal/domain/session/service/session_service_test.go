package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/oraharon2020/tavati-sub001/internal/domain/session/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockSessionRepository is a mock of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(session *model.ClaimSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(id string) (*model.ClaimSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClaimSession), args.Error(1)
}

func (m *MockSessionRepository) ListByPhone(phone string) ([]model.ClaimSession, error) {
	args := m.Called(phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ClaimSession), args.Error(1)
}

func (m *MockSessionRepository) UpdateContent(id string, updates map[string]interface{}) (int64, error) {
	args := m.Called(id, updates)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) AdvanceStatus(id string, to string) (bool, error) {
	args := m.Called(id, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) MarkPaid(id string, record json.RawMessage, paidAt time.Time) (bool, error) {
	args := m.Called(id, record, paidAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) Delete(session *model.ClaimSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionRepository) ListReminderCandidates(cutoff time.Time, reminderCount int, limit int) ([]model.ClaimSession, error) {
	args := m.Called(cutoff, reminderCount, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ClaimSession), args.Error(1)
}

func (m *MockSessionRepository) MarkReminderSent(id string, expectedCount int, at time.Time) (bool, error) {
	args := m.Called(id, expectedCount, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(statuses []string, before time.Time) (int64, error) {
	args := m.Called(statuses, before)
	return args.Get(0).(int64), args.Error(1)
}

func createTestSession(id, phone, status string) *model.ClaimSession {
	s := &model.ClaimSession{
		Phone:  phone,
		Status: status,
	}
	s.ID = id
	return s
}

func TestCreateSession(t *testing.T) {
	mockRepo := new(MockSessionRepository)
	service := NewSessionService(mockRepo)

	t.Run("Phone is canonicalized before storage", func(t *testing.T) {
		mockRepo.On("Create", mock.MatchedBy(func(s *model.ClaimSession) bool {
			return s.Phone == "972501234567" && s.Status == model.StatusDraft
		})).Return(nil).Once()

		session, err := service.CreateSession("050-123-4567", "small_claim")

		assert.NoError(t, err)
		assert.Equal(t, "972501234567", session.Phone)
		assert.Equal(t, model.StatusDraft, session.Status)
		mockRepo.AssertExpectations(t)
	})
}

func TestUpdateContent(t *testing.T) {
	t.Run("Content patch promotes draft to in_progress", func(t *testing.T) {
		mockRepo := new(MockSessionRepository)
		service := NewSessionService(mockRepo)

		data := json.RawMessage(`{"field":"value"}`)
		updated := createTestSession("sid", "972501234567", model.StatusInProgress)

		mockRepo.On("UpdateContent", "sid", mock.MatchedBy(func(u map[string]interface{}) bool {
			_, ok := u["claim_data"]
			return ok
		})).Return(int64(1), nil)
		mockRepo.On("AdvanceStatus", "sid", model.StatusInProgress).Return(true, nil)
		mockRepo.On("GetByID", "sid").Return(updated, nil)

		session, err := service.UpdateContent("sid", ContentPatch{ClaimData: data})

		assert.NoError(t, err)
		assert.Equal(t, model.StatusInProgress, session.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Unknown session returns not found", func(t *testing.T) {
		mockRepo := new(MockSessionRepository)
		service := NewSessionService(mockRepo)

		mockRepo.On("UpdateContent", "missing", mock.Anything).Return(int64(0), nil)

		_, err := service.UpdateContent("missing", ContentPatch{ClaimData: json.RawMessage(`{}`)})

		assert.ErrorIs(t, err, ErrSessionNotFound)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Paid status cannot be set through the patch endpoint", func(t *testing.T) {
		mockRepo := new(MockSessionRepository)
		service := NewSessionService(mockRepo)

		paid := model.StatusPaid
		_, err := service.UpdateContent("sid", ContentPatch{Status: &paid})

		assert.ErrorIs(t, err, ErrStatusNotAllowed)
	})

	t.Run("Backward status is an idempotent no-op", func(t *testing.T) {
		mockRepo := new(MockSessionRepository)
		service := NewSessionService(mockRepo)

		current := createTestSession("sid", "972501234567", model.StatusPendingPayment)
		draft := model.StatusInProgress

		// Conditional write matches no rows: the session is already past it.
		mockRepo.On("AdvanceStatus", "sid", model.StatusInProgress).Return(false, nil)
		mockRepo.On("GetByID", "sid").Return(current, nil)

		session, err := service.UpdateContent("sid", ContentPatch{Status: &draft})

		assert.NoError(t, err)
		assert.Equal(t, model.StatusPendingPayment, session.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Checkout initiation moves to pending_payment", func(t *testing.T) {
		mockRepo := new(MockSessionRepository)
		service := NewSessionService(mockRepo)

		pending := model.StatusPendingPayment
		result := createTestSession("sid", "972501234567", model.StatusPendingPayment)

		mockRepo.On("AdvanceStatus", "sid", model.StatusPendingPayment).Return(true, nil)
		mockRepo.On("GetByID", "sid").Return(result, nil)

		session, err := service.UpdateContent("sid", ContentPatch{Status: &pending})

		assert.NoError(t, err)
		assert.Equal(t, model.StatusPendingPayment, session.Status)
		mockRepo.AssertExpectations(t)
	})
}

func TestListByPhone(t *testing.T) {
	mockRepo := new(MockSessionRepository)
	service := NewSessionService(mockRepo)

	t.Run("Lookup uses the canonical phone", func(t *testing.T) {
		sessions := []model.ClaimSession{*createTestSession("s1", "972501234567", model.StatusDraft)}
		mockRepo.On("ListByPhone", "972501234567").Return(sessions, nil)

		result, err := service.ListByPhone("0501234567")

		assert.NoError(t, err)
		assert.Len(t, result, 1)
		mockRepo.AssertExpectations(t)
	})
}

func TestDeleteSession(t *testing.T) {
	t.Run("Owner can delete", func(t *testing.T) {
		mockRepo := new(MockSessionRepository)
		service := NewSessionService(mockRepo)

		session := createTestSession("sid", "972501234567", model.StatusDraft)
		mockRepo.On("GetByID", "sid").Return(session, nil)
		mockRepo.On("Delete", session).Return(nil)

		err := service.DeleteSession("sid", "0501234567")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Non-owner is denied", func(t *testing.T) {
		mockRepo := new(MockSessionRepository)
		service := NewSessionService(mockRepo)

		session := createTestSession("sid", "972501234567", model.StatusDraft)
		mockRepo.On("GetByID", "sid").Return(session, nil)

		err := service.DeleteSession("sid", "0509999999")

		assert.ErrorIs(t, err, ErrPermissionDenied)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything)
	})

	t.Run("Unknown session returns not found", func(t *testing.T) {
		mockRepo := new(MockSessionRepository)
		service := NewSessionService(mockRepo)

		mockRepo.On("GetByID", "missing").Return(nil, gorm.ErrRecordNotFound)

		err := service.DeleteSession("missing", "0501234567")

		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestStatusMachine(t *testing.T) {
	t.Run("Forward moves", func(t *testing.T) {
		assert.True(t, model.IsForward(model.StatusDraft, model.StatusInProgress))
		assert.True(t, model.IsForward(model.StatusInProgress, model.StatusPendingPayment))
		assert.True(t, model.IsForward(model.StatusPendingPayment, model.StatusPaid))
		assert.True(t, model.IsForward(model.StatusPendingPayment, model.StatusCompleted))
	})

	t.Run("Backward and self moves are rejected", func(t *testing.T) {
		assert.False(t, model.IsForward(model.StatusPaid, model.StatusDraft))
		assert.False(t, model.IsForward(model.StatusInProgress, model.StatusInProgress))
		assert.False(t, model.IsForward(model.StatusCompleted, model.StatusPaid))
	})

	t.Run("Settlement guard covers exactly the pre-payment states", func(t *testing.T) {
		// completed must never appear here: a redelivered webhook would
		// otherwise pull a finished session back to paid.
		assert.ElementsMatch(t,
			[]string{model.StatusDraft, model.StatusInProgress, model.StatusPendingPayment},
			model.PriorStatuses(model.StatusPaid),
		)
	})
}
