package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	discountModel "github.com/oraharon2020/tavati-sub001/internal/domain/discount/model"
	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/service"
	"github.com/oraharon2020/tavati-sub001/internal/domain/payment/model"
	sessionModel "github.com/oraharon2020/tavati-sub001/internal/domain/session/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSessionRepository is a mock of the session repository.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(session *sessionModel.ClaimSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(id string) (*sessionModel.ClaimSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionModel.ClaimSession), args.Error(1)
}

func (m *MockSessionRepository) ListByPhone(phone string) ([]sessionModel.ClaimSession, error) {
	args := m.Called(phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sessionModel.ClaimSession), args.Error(1)
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

func (m *MockSessionRepository) Delete(session *sessionModel.ClaimSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionRepository) ListReminderCandidates(cutoff time.Time, reminderCount int, limit int) ([]sessionModel.ClaimSession, error) {
	args := m.Called(cutoff, reminderCount, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sessionModel.ClaimSession), args.Error(1)
}

func (m *MockSessionRepository) MarkReminderSent(id string, expectedCount int, at time.Time) (bool, error) {
	args := m.Called(id, expectedCount, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(statuses []string, before time.Time) (int64, error) {
	args := m.Called(statuses, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockDiscountService is a mock of the discount service.
type MockDiscountService struct {
	mock.Mock
}

func (m *MockDiscountService) ValidateCoupon(code, serviceType string) (*service.ValidationResult, error) {
	args := m.Called(code, serviceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ValidationResult), args.Error(1)
}

func (m *MockDiscountService) ApplyCoupon(code, sessionID string) error {
	args := m.Called(code, sessionID)
	return args.Error(0)
}

func (m *MockDiscountService) CreateCoupon(coupon *discountModel.Coupon) error {
	args := m.Called(coupon)
	return args.Error(0)
}

func (m *MockDiscountService) UpdateCoupon(id string, updates map[string]interface{}) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockDiscountService) DeactivateCoupon(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockDiscountService) ListCoupons(offset, limit int) ([]discountModel.Coupon, int64, error) {
	args := m.Called(offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]discountModel.Coupon), args.Get(1).(int64), args.Error(2)
}

func (m *MockDiscountService) GetOrCreateReferral(rawPhone string) (*discountModel.ReferralCode, error) {
	args := m.Called(rawPhone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discountModel.ReferralCode), args.Error(1)
}

func (m *MockDiscountService) TrackReferral(code, rawNewPhone, sessionID string) (*service.TrackResult, error) {
	args := m.Called(code, rawNewPhone, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TrackResult), args.Error(1)
}

func (m *MockDiscountService) CompleteReferral(code, rawReferredPhone string) error {
	args := m.Called(code, rawReferredPhone)
	return args.Error(0)
}

func (m *MockDiscountService) CompleteReferralByPhone(rawReferredPhone string) error {
	args := m.Called(rawReferredPhone)
	return args.Error(0)
}

func (m *MockDiscountService) MarkOptOut(rawPhone string) error {
	args := m.Called(rawPhone)
	return args.Error(0)
}

func (m *MockDiscountService) IsOptedOut(rawPhone string) (bool, error) {
	args := m.Called(rawPhone)
	return args.Bool(0), args.Error(1)
}

// MockApprover is a mock of the processor confirm client.
type MockApprover struct {
	mock.Mock
}

func (m *MockApprover) Approve(ctx context.Context, n *model.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func successNotification(sessionID string) *model.Notification {
	return &model.Notification{
		Status:        model.StatusSuccess,
		TransactionID: "tx-1001",
		Asmachta:      "778811",
		Sum:           "71",
		PayerPhone:    "0501234567",
		SessionID:     sessionID,
	}
}

func paidSession(id, phone string) *sessionModel.ClaimSession {
	s := &sessionModel.ClaimSession{Phone: phone, Status: sessionModel.StatusPaid}
	s.ID = id
	return s
}

func TestHandleNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("Success settles the session and completes the referral", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		discount := new(MockDiscountService)
		approver := new(MockApprover)
		svc := NewPaymentService(sessions, discount, approver)

		n := successNotification("sid")
		sessions.On("MarkPaid", "sid", mock.Anything, mock.Anything).Return(true, nil)
		sessions.On("GetByID", "sid").Return(paidSession("sid", "972501234567"), nil)
		discount.On("CompleteReferralByPhone", "972501234567").Return(nil)
		approver.On("Approve", ctx, n).Return(nil)

		svc.HandleNotification(ctx, n)

		sessions.AssertExpectations(t)
		discount.AssertExpectations(t)
		approver.AssertExpectations(t)
	})

	t.Run("Redelivery is acknowledged without repeating side effects", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		discount := new(MockDiscountService)
		approver := new(MockApprover)
		svc := NewPaymentService(sessions, discount, approver)

		n := successNotification("sid")
		// The guarded paid transition matches no rows the second time.
		sessions.On("MarkPaid", "sid", mock.Anything, mock.Anything).Return(false, nil)
		approver.On("Approve", ctx, n).Return(nil)

		svc.HandleNotification(ctx, n)

		sessions.AssertNotCalled(t, "GetByID", mock.Anything)
		discount.AssertNotCalled(t, "CompleteReferralByPhone", mock.Anything)
		// The confirm call still fires for every success notification.
		approver.AssertExpectations(t)
	})

	t.Run("Missing correlation field mutates nothing", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		discount := new(MockDiscountService)
		approver := new(MockApprover)
		svc := NewPaymentService(sessions, discount, approver)

		svc.HandleNotification(ctx, successNotification(""))

		sessions.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
		approver.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything)
	})

	t.Run("Failure status leaves the session untouched", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		discount := new(MockDiscountService)
		approver := new(MockApprover)
		svc := NewPaymentService(sessions, discount, approver)

		n := successNotification("sid")
		n.Status = "0"

		svc.HandleNotification(ctx, n)

		sessions.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
		approver.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything)
	})

	t.Run("Unknown status fails closed", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		discount := new(MockDiscountService)
		approver := new(MockApprover)
		svc := NewPaymentService(sessions, discount, approver)

		n := successNotification("sid")
		n.Status = "success"

		svc.HandleNotification(ctx, n)

		sessions.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Approve failure is soft", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		discount := new(MockDiscountService)
		approver := new(MockApprover)
		svc := NewPaymentService(sessions, discount, approver)

		n := successNotification("sid")
		sessions.On("MarkPaid", "sid", mock.Anything, mock.Anything).Return(true, nil)
		sessions.On("GetByID", "sid").Return(paidSession("sid", "972501234567"), nil)
		discount.On("CompleteReferralByPhone", "972501234567").Return(nil)
		approver.On("Approve", ctx, n).Return(errors.New("processor timeout"))

		// Must not panic or propagate: the webhook ack is unconditional.
		svc.HandleNotification(ctx, n)

		sessions.AssertExpectations(t)
	})

	t.Run("Referral completion failure does not block settlement", func(t *testing.T) {
		sessions := new(MockSessionRepository)
		discount := new(MockDiscountService)
		approver := new(MockApprover)
		svc := NewPaymentService(sessions, discount, approver)

		n := successNotification("sid")
		sessions.On("MarkPaid", "sid", mock.Anything, mock.Anything).Return(true, nil)
		sessions.On("GetByID", "sid").Return(paidSession("sid", "972501234567"), nil)
		discount.On("CompleteReferralByPhone", "972501234567").Return(errors.New("db down"))
		approver.On("Approve", ctx, n).Return(nil)

		svc.HandleNotification(ctx, n)

		approver.AssertExpectations(t)
	})
}

func TestNotificationParsing(t *testing.T) {
	t.Run("Record snapshot keeps the settlement fields", func(t *testing.T) {
		n := successNotification("sid")
		at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

		raw, err := model.RecordFrom(n, at)
		assert.NoError(t, err)

		var record model.Record
		assert.NoError(t, json.Unmarshal(raw, &record))
		assert.Equal(t, "tx-1001", record.TransactionID)
		assert.Equal(t, "778811", record.Asmachta)
		assert.Equal(t, "71", record.Sum)
		assert.Equal(t, at, record.SettledAt)
	})
}
