package model

import (
	"time"

	baseModel "github.com/oraharon2020/tavati-sub001/pkg/model"
)

// Coupon is an operator-managed discount code. Codes are matched
// case-insensitively; the canonical stored form is lowercase.
type Coupon struct {
	baseModel.BaseModel
	Code          string     `gorm:"uniqueIndex;not null" json:"code"`
	DiscountType  string     `gorm:"type:varchar(20);not null" json:"discountType"` // percentage | fixed
	DiscountValue float64    `gorm:"not null" json:"discountValue"`
	MaxUses       *int       `json:"maxUses,omitempty"` // nil = unlimited
	UsedCount     int        `gorm:"default:0" json:"usedCount"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Active        bool       `gorm:"default:true" json:"active"`
}

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// CouponRedemption is the append-only usage audit. The unique session id
// makes re-applying a coupon to the same checkout an idempotent no-op.
type CouponRedemption struct {
	baseModel.BaseModel
	CouponID  string `gorm:"type:uuid;index;not null" json:"couponId"`
	Code      string `gorm:"not null" json:"code"`
	SessionID string `gorm:"uniqueIndex;not null" json:"sessionId"`
}
