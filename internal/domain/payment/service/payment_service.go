package service

import (
	"context"
	"errors"
	"time"

	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/service"
	"github.com/oraharon2020/tavati-sub001/internal/domain/payment/model"
	"github.com/oraharon2020/tavati-sub001/internal/domain/payment/processor"
	sessionRepo "github.com/oraharon2020/tavati-sub001/internal/domain/session/repository"
	"github.com/oraharon2020/tavati-sub001/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService consumes processor notifications. It never returns an
// error to its caller: the webhook is acknowledged no matter what happens
// here, by contract with the processor, so every internal failure is logged
// instead of propagated.
type PaymentService interface {
	HandleNotification(ctx context.Context, n *model.Notification)
}

type paymentService struct {
	sessions sessionRepo.SessionRepository
	discount service.DiscountService
	approver processor.Approver
}

func NewPaymentService(sessions sessionRepo.SessionRepository, discount service.DiscountService, approver processor.Approver) PaymentService {
	return &paymentService{
		sessions: sessions,
		discount: discount,
		approver: approver,
	}
}

// HandleNotification runs the receive phase and, for successful payments,
// the confirm phase.
//
// Receive: a missing correlation field or a failed status mutates nothing.
// A success marks the session paid via a single conditional write; only the
// first transition unlocks business side effects, which makes processor
// redeliveries harmless.
//
// Confirm: the approve call fires for every success notification, including
// redeliveries, and its failure is soft: logged, never retried here, never
// blocking the acknowledgment.
func (s *paymentService) HandleNotification(ctx context.Context, n *model.Notification) {
	if n.SessionID == "" {
		logger.Error("payment webhook without correlation field, acknowledging without mutation",
			zap.String("transaction_id", n.TransactionID),
			zap.String("status", n.Status),
		)
		return
	}

	if !n.Success() {
		// Session stays in its prior state so the user can retry checkout.
		logger.Info("payment notification reported failure",
			zap.String("session_id", n.SessionID),
			zap.String("transaction_id", n.TransactionID),
			zap.String("status", n.Status),
		)
		return
	}

	s.settle(n)

	if err := s.approver.Approve(ctx, n); err != nil {
		// Soft failure by contract: operators alert on this log line.
		logger.Error("approve call failed",
			zap.String("session_id", n.SessionID),
			zap.String("transaction_id", n.TransactionID),
			zap.Error(err),
		)
	}
}

func (s *paymentService) settle(n *model.Notification) {
	now := time.Now()
	record, err := model.RecordFrom(n, now)
	if err != nil {
		logger.Error("payment record snapshot failed", zap.Error(err))
		return
	}

	firstTime, err := s.sessions.MarkPaid(n.SessionID, record, now)
	if err != nil {
		logger.Error("marking session paid failed, acknowledging anyway",
			zap.String("session_id", n.SessionID),
			zap.String("transaction_id", n.TransactionID),
			zap.Error(err),
		)
		return
	}
	if !firstTime {
		// Redelivery: the paid→paid transition is an idempotent no-op and
		// the side effects below already ran.
		logger.Info("duplicate payment notification ignored",
			zap.String("session_id", n.SessionID),
			zap.String("transaction_id", n.TransactionID),
		)
		return
	}

	session, err := s.sessions.GetByID(n.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("paid session vanished before side effects",
				zap.String("session_id", n.SessionID))
			return
		}
		logger.Error("loading paid session failed",
			zap.String("session_id", n.SessionID), zap.Error(err))
		return
	}

	// First-time-paid side effects. Referral completion is itself a guarded
	// no-op when nothing is pending.
	if err := s.discount.CompleteReferralByPhone(session.Phone); err != nil {
		logger.Error("referral completion failed after settlement",
			zap.String("session_id", n.SessionID),
			zap.String("phone", session.Phone),
			zap.Error(err),
		)
	}

	logger.Info("session settled",
		zap.String("session_id", n.SessionID),
		zap.String("transaction_id", n.TransactionID),
		zap.String("sum", n.Sum),
	)
}
