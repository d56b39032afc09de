package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/model"
	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/repository"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/config"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/phone"
	"github.com/oraharon2020/tavati-sub001/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrCouponInactive   = errors.New("coupon is not active")
	ErrCouponExpired    = errors.New("coupon has expired")
	ErrCouponExhausted  = errors.New("coupon has reached its use cap")
	ErrReferralNotFound = errors.New("referral code not found")
	ErrSelfReferral     = errors.New("a referral code cannot be used by its owner")
)

// ValidationResult is the priced outcome of a coupon lookup. Validation is
// a pure read; it never consumes a use.
type ValidationResult struct {
	Code           string  `json:"code"`
	DiscountType   string  `json:"discountType"`
	DiscountValue  float64 `json:"discountValue"`
	BasePrice      float64 `json:"basePrice"`
	DiscountAmount float64 `json:"discountAmount"`
	FinalPrice     float64 `json:"finalPrice"`
}

// TrackResult is the outcome of binding a referral code to a new phone.
// AlreadyUsed is a user-facing "been there" case, not a fault: the caller
// gets success with zero discount.
type TrackResult struct {
	AlreadyUsed     bool    `json:"alreadyUsed"`
	DiscountPercent float64 `json:"discountPercent"`
}

type DiscountService interface {
	ValidateCoupon(code, serviceType string) (*ValidationResult, error)
	ApplyCoupon(code, sessionID string) error
	CreateCoupon(coupon *model.Coupon) error
	UpdateCoupon(id string, updates map[string]interface{}) error
	DeactivateCoupon(id string) error
	ListCoupons(offset, limit int) ([]model.Coupon, int64, error)

	GetOrCreateReferral(rawPhone string) (*model.ReferralCode, error)
	TrackReferral(code, rawNewPhone, sessionID string) (*TrackResult, error)
	CompleteReferral(code, rawReferredPhone string) error
	// CompleteReferralByPhone is the settlement-side entry point: it finds
	// the referred phone's pending usage, if any, and completes it. A
	// missing or already-completed usage is a silent no-op.
	CompleteReferralByPhone(rawReferredPhone string) error

	MarkOptOut(rawPhone string) error
	IsOptedOut(rawPhone string) (bool, error)
}

type discountService struct {
	repo repository.DiscountRepository
}

func NewDiscountService(repo repository.DiscountRepository) DiscountService {
	return &discountService{repo: repo}
}

func basePriceFor(serviceType string) float64 {
	pricing := config.GlobalConfig.Pricing
	if price, ok := pricing.BasePrices[serviceType]; ok {
		return price
	}
	return pricing.DefaultPrice
}

// priceWith computes the discount against the base price. Percentage
// discounts are rounded to the nearest shekel; fixed discounts clamp at
// zero.
func priceWith(coupon *model.Coupon, base float64) (discount, final float64) {
	switch coupon.DiscountType {
	case model.DiscountPercentage:
		discount = math.Round(base * coupon.DiscountValue / 100)
	case model.DiscountFixed:
		discount = coupon.DiscountValue
	}
	if discount > base {
		discount = base
	}
	return discount, base - discount
}

func checkRedeemable(coupon *model.Coupon) error {
	if !coupon.Active {
		return ErrCouponInactive
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(time.Now()) {
		return ErrCouponExpired
	}
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return ErrCouponExhausted
	}
	return nil
}

func (s *discountService) ValidateCoupon(code, serviceType string) (*ValidationResult, error) {
	coupon, err := s.repo.GetCouponByCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := checkRedeemable(coupon); err != nil {
		return nil, err
	}

	base := basePriceFor(serviceType)
	discount, final := priceWith(coupon, base)
	return &ValidationResult{
		Code:           coupon.Code,
		DiscountType:   coupon.DiscountType,
		DiscountValue:  coupon.DiscountValue,
		BasePrice:      base,
		DiscountAmount: discount,
		FinalPrice:     final,
	}, nil
}

// ApplyCoupon consumes one use for a checkout. Repeating the call for the
// same session is a no-op success; losing the race for the last use is a
// failure classified by re-reading the coupon.
func (s *discountService) ApplyCoupon(code, sessionID string) error {
	outcome, err := s.repo.RedeemCoupon(code, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCouponNotFound
	}
	if err != nil {
		return err
	}

	switch outcome {
	case repository.Redeemed, repository.AlreadyRedeemed:
		return nil
	default:
		coupon, err := s.repo.GetCouponByCode(code)
		if err != nil {
			return ErrCouponExhausted
		}
		if err := checkRedeemable(coupon); err != nil {
			return err
		}
		// The guarded write failed but the snapshot looks redeemable: a
		// concurrent redemption took the last use between the two reads.
		return ErrCouponExhausted
	}
}

func (s *discountService) CreateCoupon(coupon *model.Coupon) error {
	return s.repo.CreateCoupon(coupon)
}

func (s *discountService) UpdateCoupon(id string, updates map[string]interface{}) error {
	affected, err := s.repo.UpdateCoupon(id, updates)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCouponNotFound
	}
	return nil
}

func (s *discountService) DeactivateCoupon(id string) error {
	return s.UpdateCoupon(id, map[string]interface{}{"active": false})
}

func (s *discountService) ListCoupons(offset, limit int) ([]model.Coupon, int64, error) {
	return s.repo.ListCoupons(offset, limit)
}

// referralCodeAlphabet avoids ambiguous characters in codes read over the
// phone.
const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newReferralCode() (string, error) {
	buf := make([]byte, 6)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = referralCodeAlphabet[n.Int64()]
	}
	return "REF" + string(buf), nil
}

// GetOrCreateReferral returns the phone's referral code, minting one on
// first request. The conflict-free insert plus refetch makes concurrent
// first-time requests converge on a single row.
func (s *discountService) GetOrCreateReferral(rawPhone string) (*model.ReferralCode, error) {
	canonical := phone.Normalize(rawPhone)

	ref, err := s.repo.GetReferralByPhone(canonical)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	code, err := newReferralCode()
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateReferralIfAbsent(&model.ReferralCode{
		Phone: canonical,
		Code:  code,
	}); err != nil {
		return nil, err
	}

	return s.repo.GetReferralByPhone(canonical)
}

func (s *discountService) TrackReferral(code, rawNewPhone, sessionID string) (*TrackResult, error) {
	ref, err := s.repo.GetReferralByCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReferralNotFound
	}
	if err != nil {
		return nil, err
	}

	newPhone := phone.Normalize(rawNewPhone)
	if ref.Phone == newPhone {
		return nil, ErrSelfReferral
	}

	inserted, err := s.repo.CreateUsageIfFirst(&model.ReferralUsage{
		ReferralCode:  ref.Code,
		ReferrerPhone: ref.Phone,
		ReferredPhone: newPhone,
		SessionID:     sessionID,
		Status:        model.UsagePending,
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		// One redemption per phone, ever. Success with zero discount.
		return &TrackResult{AlreadyUsed: true}, nil
	}

	return &TrackResult{DiscountPercent: config.GlobalConfig.Pricing.ReferralPercent}, nil
}

// CompleteReferral moves a pending usage to completed and credits the
// referrer exactly once. Completing an already-completed or never-tracked
// usage is a silent no-op.
func (s *discountService) CompleteReferral(code, rawReferredPhone string) error {
	referredPhone := phone.Normalize(rawReferredPhone)

	completed, err := s.repo.CompleteUsage(code, referredPhone, time.Now())
	if err != nil {
		return err
	}
	if !completed {
		return nil
	}

	credit := config.GlobalConfig.Pricing.ReferralCredit
	if err := s.repo.CreditReferrer(code, credit); err != nil {
		// The usage row is already completed; the credit must not be lost.
		logger.Error("referral credit failed after completion",
			zap.String("code", code),
			zap.String("referred_phone", referredPhone),
			zap.Error(err),
		)
		return fmt.Errorf("credit referrer: %w", err)
	}
	return nil
}

func (s *discountService) CompleteReferralByPhone(rawReferredPhone string) error {
	referredPhone := phone.Normalize(rawReferredPhone)

	usage, err := s.repo.GetPendingUsageByPhone(referredPhone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.CompleteReferral(usage.ReferralCode, referredPhone)
}

func (s *discountService) MarkOptOut(rawPhone string) error {
	return s.repo.AddOptOut(phone.Normalize(rawPhone), time.Now())
}

func (s *discountService) IsOptedOut(rawPhone string) (bool, error) {
	return s.repo.IsOptedOut(phone.Normalize(rawPhone))
}
