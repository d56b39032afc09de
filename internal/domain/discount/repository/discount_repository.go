package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedeemOutcome reports what a redemption attempt did.
type RedeemOutcome int

const (
	Redeemed RedeemOutcome = iota
	AlreadyRedeemed
	NotRedeemable
)

type DiscountRepository interface {
	// Coupons
	CreateCoupon(coupon *model.Coupon) error
	GetCouponByID(id string) (*model.Coupon, error)
	GetCouponByCode(code string) (*model.Coupon, error)
	UpdateCoupon(id string, updates map[string]interface{}) (int64, error)
	ListCoupons(offset, limit int) ([]model.Coupon, int64, error)
	// RedeemCoupon consumes one use for a checkout: the audit insert and the
	// increment-if-under-cap run in one transaction so two concurrent
	// redemptions of a coupon's last use cannot both succeed.
	RedeemCoupon(code, sessionID string) (RedeemOutcome, error)

	// Referrals
	GetReferralByPhone(phone string) (*model.ReferralCode, error)
	GetReferralByCode(code string) (*model.ReferralCode, error)
	// CreateReferralIfAbsent inserts unless the phone already has a code.
	// Safe under concurrent first-time requests; callers refetch after.
	CreateReferralIfAbsent(ref *model.ReferralCode) error
	// CreateUsageIfFirst inserts a pending usage row unless the referred
	// phone already has one. Returns false in the already-used case.
	CreateUsageIfFirst(usage *model.ReferralUsage) (bool, error)
	GetPendingUsageByPhone(referredPhone string) (*model.ReferralUsage, error)
	// CompleteUsage flips exactly one matching pending row to completed.
	CompleteUsage(code, referredPhone string, at time.Time) (bool, error)
	// CreditReferrer atomically bumps the referrer's counters.
	CreditReferrer(code string, credit float64) error

	// Opt-outs
	AddOptOut(phone string, at time.Time) error
	IsOptedOut(phone string) (bool, error)
}

// errNotRedeemable rolls back the redemption transaction when the guarded
// increment matched no rows.
var errNotRedeemable = errors.New("coupon not redeemable")

type discountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

func (r *discountRepository) CreateCoupon(coupon *model.Coupon) error {
	coupon.Code = strings.ToLower(coupon.Code)
	return r.db.Create(coupon).Error
}

func (r *discountRepository) GetCouponByID(id string) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := r.db.First(&coupon, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *discountRepository) GetCouponByCode(code string) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := r.db.First(&coupon, "code = ?", strings.ToLower(code)).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *discountRepository) UpdateCoupon(id string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&model.Coupon{}).Where("id = ?", id).Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *discountRepository) ListCoupons(offset, limit int) ([]model.Coupon, int64, error) {
	var coupons []model.Coupon
	var total int64
	if err := r.db.Model(&model.Coupon{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&coupons).Error
	return coupons, total, err
}

func (r *discountRepository) RedeemCoupon(code, sessionID string) (RedeemOutcome, error) {
	code = strings.ToLower(code)
	outcome := NotRedeemable

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var coupon model.Coupon
		if err := tx.First(&coupon, "code = ?", code).Error; err != nil {
			return err
		}

		// Audit row first; a session that already redeemed is a no-op.
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).Create(&model.CouponRedemption{
			CouponID:  coupon.ID,
			Code:      code,
			SessionID: sessionID,
		})
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			outcome = AlreadyRedeemed
			return nil
		}

		// Increment with the cap, expiry and active checks inside the WHERE:
		// the guarded conditional write is the atomicity primitive, not a
		// read-modify-write.
		result := tx.Model(&model.Coupon{}).
			Where("code = ? AND active = true", code).
			Where("expires_at IS NULL OR expires_at > ?", time.Now()).
			Where("max_uses IS NULL OR used_count < max_uses").
			UpdateColumn("used_count", gorm.Expr("used_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			outcome = NotRedeemable
			return errNotRedeemable // rolls back the audit row
		}

		outcome = Redeemed
		return nil
	})

	if errors.Is(err, errNotRedeemable) {
		return NotRedeemable, nil
	}
	if err != nil {
		return NotRedeemable, err
	}
	return outcome, nil
}

func (r *discountRepository) GetReferralByPhone(phone string) (*model.ReferralCode, error) {
	var ref model.ReferralCode
	if err := r.db.First(&ref, "phone = ?", phone).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *discountRepository) GetReferralByCode(code string) (*model.ReferralCode, error) {
	var ref model.ReferralCode
	if err := r.db.First(&ref, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *discountRepository) CreateReferralIfAbsent(ref *model.ReferralCode) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(ref).Error
}

func (r *discountRepository) CreateUsageIfFirst(usage *model.ReferralUsage) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "referred_phone"}},
		DoNothing: true,
	}).Create(usage)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *discountRepository) GetPendingUsageByPhone(referredPhone string) (*model.ReferralUsage, error) {
	var usage model.ReferralUsage
	err := r.db.First(&usage, "referred_phone = ? AND status = ?", referredPhone, model.UsagePending).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *discountRepository) CompleteUsage(code, referredPhone string, at time.Time) (bool, error) {
	result := r.db.Model(&model.ReferralUsage{}).
		Where("referral_code = ? AND referred_phone = ? AND status = ?", code, referredPhone, model.UsagePending).
		Updates(map[string]interface{}{
			"status":       model.UsageCompleted,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *discountRepository) CreditReferrer(code string, credit float64) error {
	return r.db.Model(&model.ReferralCode{}).
		Where("code = ?", code).
		UpdateColumns(map[string]interface{}{
			"referral_count": gorm.Expr("referral_count + 1"),
			"total_earnings": gorm.Expr("total_earnings + ?", credit),
		}).Error
}

func (r *discountRepository) AddOptOut(phone string, at time.Time) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(&model.OptOut{Phone: phone, OptedOutAt: at}).Error
}

func (r *discountRepository) IsOptedOut(phone string) (bool, error) {
	var count int64
	err := r.db.Model(&model.OptOut{}).Where("phone = ?", phone).Count(&count).Error
	return count > 0, err
}
