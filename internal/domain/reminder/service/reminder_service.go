package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	discountService "github.com/oraharon2020/tavati-sub001/internal/domain/discount/service"
	"github.com/oraharon2020/tavati-sub001/internal/domain/reminder/model"
	"github.com/oraharon2020/tavati-sub001/internal/domain/reminder/repository"
	sessionModel "github.com/oraharon2020/tavati-sub001/internal/domain/session/model"
	sessionRepo "github.com/oraharon2020/tavati-sub001/internal/domain/session/repository"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/config"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/sms"
	"github.com/oraharon2020/tavati-sub001/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrRunInProgress means another worker holds the run-lock for this job.
var ErrRunInProgress = errors.New("a run of this job is already in progress")

// TierStats summarizes one tier of one scheduler run.
type TierStats struct {
	Tier    int `json:"tier"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// CleanupStats summarizes one retention sweep.
type CleanupStats struct {
	SettledSessionsDeleted int64 `json:"settledSessionsDeleted"`
	StaleSessionsDeleted   int64 `json:"staleSessionsDeleted"`
	ReminderLogsDeleted    int64 `json:"reminderLogsDeleted"`
}

type ReminderService interface {
	// RunReminders executes one scheduler tick: tier-2 first (those sessions
	// have waited longest), then tier-1 with the remaining batch budget.
	RunReminders(ctx context.Context) ([]TierStats, error)
	// RunCleanup applies the retention windows: 90 days for settled
	// sessions, 180 for stale ones and for reminder logs.
	RunCleanup(ctx context.Context) (*CleanupStats, error)
}

// Every outbound message carries the opt-out instruction required by
// messaging-compliance rules.
const optOutInstruction = "להסרה השיבו הסר"

// Rotating copy pools keep the messages from looking like identical spam
// to carrier filters.
var tier1Messages = []string{
	"שמנו לב שהתחלת להכין תביעה ולא סיימת. אפשר להמשיך בדיוק מאיפה שעצרת.",
	"התביעה שלך מחכה לך. נשארו רק כמה שלבים לסיום.",
	"התחלת תהליך הגשת תביעה? הטיוטה שלך שמורה וממתינה להשלמה.",
}

var tier2Messages = []string{
	"תזכורת אחרונה: הטיוטה של התביעה שלך עדיין שמורה. השלמת ההגשה לוקחת דקות ספורות.",
	"עברו כמה ימים מאז שהתחלת את התביעה. זו ההזדמנות לסיים את ההגשה.",
}

const (
	settledRetention = 90 * 24 * time.Hour
	staleRetention   = 180 * 24 * time.Hour
	lockTTL          = 10 * time.Minute
)

type tier struct {
	number        int
	minAge        time.Duration
	expectedCount int
	messages      []string
}

type reminderService struct {
	sessions sessionRepo.SessionRepository
	discount discountService.DiscountService
	gateway  *sms.Gateway
	repo     repository.ReminderRepository
	rdb      *redis.Client
}

func NewReminderService(
	sessions sessionRepo.SessionRepository,
	discount discountService.DiscountService,
	gateway *sms.Gateway,
	repo repository.ReminderRepository,
	rdb *redis.Client,
) ReminderService {
	return &reminderService{
		sessions: sessions,
		discount: discount,
		gateway:  gateway,
		repo:     repo,
		rdb:      rdb,
	}
}

// acquireLock takes the redis run-lock for one job kind. Overlapping cron
// ticks are the one cross-request race the datastore guards don't already
// cover cheaply, so the tick itself is serialized.
func (s *reminderService) acquireLock(ctx context.Context, kind string) (func(), error) {
	key := fmt.Sprintf("cron:lock:%s", kind)
	ok, err := s.rdb.SetNX(ctx, key, time.Now().Format(time.RFC3339), lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() { s.rdb.Del(context.Background(), key) }, nil
}

func (s *reminderService) RunReminders(ctx context.Context) ([]TierStats, error) {
	release, err := s.acquireLock(ctx, "reminders")
	if err != nil {
		return nil, err
	}
	defer release()

	cfg := config.GlobalConfig.Reminders
	tiers := []tier{
		{number: 2, minAge: time.Duration(cfg.Tier2Hours) * time.Hour, expectedCount: 1, messages: tier2Messages},
		{number: 1, minAge: time.Duration(cfg.Tier1Hours) * time.Hour, expectedCount: 0, messages: tier1Messages},
	}

	budget := cfg.BatchSize
	var stats []TierStats
	for _, t := range tiers {
		if budget <= 0 {
			break
		}
		st, processed := s.runTier(ctx, t, budget)
		budget -= processed
		stats = append(stats, st)
	}
	return stats, nil
}

// runTier processes one tier's candidates and appends its audit row.
// Returns the stats and how many candidates it consumed from the batch
// budget.
func (s *reminderService) runTier(ctx context.Context, t tier, budget int) (TierStats, int) {
	stats := TierStats{Tier: t.number}

	cutoff := time.Now().Add(-t.minAge)
	candidates, err := s.sessions.ListReminderCandidates(cutoff, t.expectedCount, budget)
	if err != nil {
		logger.Error("listing reminder candidates failed",
			zap.Int("tier", t.number), zap.Error(err))
		return stats, 0
	}

	type detail struct {
		SessionID string `json:"sessionId"`
		Outcome   string `json:"outcome"`
	}
	var details []detail

	for i, session := range candidates {
		// The tier cap: a session never gets more reminders than its tier
		// number. The query already filters on the exact count; this guard
		// stays because the invariant must hold even if the query changes.
		if session.ReminderCount >= t.number {
			stats.Skipped++
			details = append(details, detail{session.ID, "over_cap"})
			continue
		}

		optedOut, err := s.discount.IsOptedOut(session.Phone)
		if err != nil {
			logger.Error("opt-out lookup failed, skipping session",
				zap.String("session_id", session.ID), zap.Error(err))
			stats.Skipped++
			details = append(details, detail{session.ID, "optout_lookup_failed"})
			continue
		}
		if optedOut {
			stats.Skipped++
			details = append(details, detail{session.ID, "opted_out"})
			continue
		}

		message := t.messages[i%len(t.messages)] + "\n" + optOutInstruction
		if err := s.gateway.Send(ctx, session.Phone, message); err != nil {
			// Left untouched: eligible again on the next run.
			stats.Failed++
			details = append(details, detail{session.ID, "send_failed"})
			continue
		}

		// The durable side effect. A concurrent run that already bumped the
		// counter turns this into a skip, not a double send.
		updated, err := s.sessions.MarkReminderSent(session.ID, session.ReminderCount, time.Now())
		if err != nil {
			logger.Error("recording reminder failed after send",
				zap.String("session_id", session.ID), zap.Error(err))
			stats.Failed++
			details = append(details, detail{session.ID, "record_failed"})
			continue
		}
		if !updated {
			stats.Skipped++
			details = append(details, detail{session.ID, "concurrent_update"})
			continue
		}
		stats.Sent++
		details = append(details, detail{session.ID, "sent"})
	}

	blob, _ := json.Marshal(details)
	if err := s.repo.CreateLog(&model.ReminderLog{
		Tier:    t.number,
		Sent:    stats.Sent,
		Failed:  stats.Failed,
		Skipped: stats.Skipped,
		Details: blob,
	}); err != nil {
		// Partial progress is acceptable: the per-session counters already
		// prevent re-sending, only the audit row is lost.
		logger.Error("writing reminder log failed",
			zap.Int("tier", t.number), zap.Error(err))
	}

	return stats, len(candidates)
}

func (s *reminderService) RunCleanup(ctx context.Context) (*CleanupStats, error) {
	release, err := s.acquireLock(ctx, "cleanup")
	if err != nil {
		return nil, err
	}
	defer release()

	now := time.Now()
	stats := &CleanupStats{}

	settled, err := s.sessions.DeleteExpired(
		[]string{sessionModel.StatusPaid, sessionModel.StatusCompleted},
		now.Add(-settledRetention),
	)
	if err != nil {
		return nil, err
	}
	stats.SettledSessionsDeleted = settled

	stale, err := s.sessions.DeleteExpired(
		[]string{sessionModel.StatusDraft, sessionModel.StatusInProgress, sessionModel.StatusPendingPayment},
		now.Add(-staleRetention),
	)
	if err != nil {
		return nil, err
	}
	stats.StaleSessionsDeleted = stale

	logs, err := s.repo.DeleteLogsBefore(now.Add(-staleRetention))
	if err != nil {
		return nil, err
	}
	stats.ReminderLogsDeleted = logs

	logger.Info("retention sweep finished",
		zap.Int64("settled_sessions", stats.SettledSessionsDeleted),
		zap.Int64("stale_sessions", stats.StaleSessionsDeleted),
		zap.Int64("reminder_logs", stats.ReminderLogsDeleted),
	)
	return stats, nil
}
