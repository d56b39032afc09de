package model

import (
	"encoding/json"
	"time"

	baseModel "github.com/oraharon2020/tavati-sub001/pkg/model"
)

// ClaimSession is one user's walk through the filing flow, keyed by
// canonical phone. ClaimData and Messages are opaque payloads owned by the
// drafting subsystem; this service only stores and merges them.
type ClaimSession struct {
	baseModel.BaseModel
	Phone          string          `gorm:"index;not null" json:"phone"`
	ServiceType    string          `gorm:"type:varchar(50)" json:"serviceType"`
	Status         string          `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	CurrentStep    int             `gorm:"default:0" json:"currentStep"`
	ClaimData      json.RawMessage `gorm:"type:jsonb" json:"claimData,omitempty"`
	Messages       json.RawMessage `gorm:"type:jsonb" json:"messages,omitempty"`
	ReminderCount  int             `gorm:"default:0" json:"reminderCount"`
	ReminderSentAt *time.Time      `json:"reminderSentAt,omitempty"`
	PaymentRecord  json.RawMessage `gorm:"type:jsonb" json:"paymentRecord,omitempty"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
}

const (
	StatusDraft          = "draft"
	StatusInProgress     = "in_progress"
	StatusPendingPayment = "pending_payment"
	StatusPaid           = "paid"
	StatusCompleted      = "completed"
)

// statusRank orders the state machine; transitions only move to a higher
// rank. completed sits above paid so both pending_payment→completed and
// paid→completed are forward moves.
var statusRank = map[string]int{
	StatusDraft:          0,
	StatusInProgress:     1,
	StatusPendingPayment: 2,
	StatusPaid:           3,
	StatusCompleted:      4,
}

// IsForward reports whether moving from→to advances the state machine.
func IsForward(from, to string) bool {
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok1 && ok2 && tr > fr
}

// KnownStatus reports whether s is one of the machine's states.
func KnownStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// PriorStatuses returns every state ranked strictly below to. Used to build
// the guarded conditional update that enforces forward-only transitions at
// the storage layer.
func PriorStatuses(to string) []string {
	tr, ok := statusRank[to]
	if !ok {
		return nil
	}
	var priors []string
	for s, r := range statusRank {
		if r < tr {
			priors = append(priors, s)
		}
	}
	return priors
}
