package model

import (
	"time"

	baseModel "github.com/oraharon2020/tavati-sub001/pkg/model"
)

// ReferralCode is minted lazily, one per referring phone.
type ReferralCode struct {
	baseModel.BaseModel
	Phone         string  `gorm:"uniqueIndex;not null" json:"phone"` // canonical
	Code          string  `gorm:"uniqueIndex;not null" json:"code"`
	ReferralCount int     `gorm:"default:0" json:"referralCount"`
	TotalEarnings float64 `gorm:"default:0" json:"totalEarnings"`
}

// ReferralUsage records one phone redeeming one referral code. The unique
// index on referred_phone enforces "one redemption per phone, ever" at the
// storage layer.
type ReferralUsage struct {
	baseModel.BaseModel
	ReferralCode  string     `gorm:"index;not null" json:"referralCode"`
	ReferrerPhone string     `gorm:"not null" json:"referrerPhone"`
	ReferredPhone string     `gorm:"uniqueIndex;not null" json:"referredPhone"`
	SessionID     string     `gorm:"index" json:"sessionId"`
	Status        string     `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

const (
	UsagePending   = "pending"
	UsageCompleted = "completed"
	UsageCancelled = "cancelled"
)
