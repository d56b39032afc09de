package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/model"
	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/service"
	"github.com/oraharon2020/tavati-sub001/pkg/response"
	"github.com/oraharon2020/tavati-sub001/pkg/utils"

	"github.com/gin-gonic/gin"
)

type DiscountHandler struct {
	service service.DiscountService
}

func NewDiscountHandler(s service.DiscountService) *DiscountHandler {
	return &DiscountHandler{service: s}
}

type ValidateCouponInput struct {
	Code        string `json:"code" binding:"required"`
	ServiceType string `json:"serviceType"`
}

// ValidateCoupon prices a coupon without consuming a use.
func (h *DiscountHandler) ValidateCoupon(c *gin.Context) {
	var input ValidateCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.ValidateCoupon(input.Code, input.ServiceType)
	if err != nil {
		h.writeCouponError(c, err)
		return
	}

	response.Success(c, result)
}

type ApplyCouponInput struct {
	Code      string `json:"code" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
}

// ApplyCoupon consumes a coupon use for a checkout.
func (h *DiscountHandler) ApplyCoupon(c *gin.Context) {
	var input ApplyCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.ApplyCoupon(input.Code, input.SessionID); err != nil {
		h.writeCouponError(c, err)
		return
	}

	response.Success(c, gin.H{"applied": true})
}

func (h *DiscountHandler) writeCouponError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		response.Error(c, http.StatusNotFound, response.ErrCouponNotFound, "Coupon not found")
	case errors.Is(err, service.ErrCouponInactive):
		response.Fail(c, response.ErrCouponInactive, "Coupon is not active")
	case errors.Is(err, service.ErrCouponExpired):
		response.Fail(c, response.ErrCouponExpired, "Coupon has expired")
	case errors.Is(err, service.ErrCouponExhausted):
		response.Fail(c, response.ErrCouponExhausted, "Coupon has reached its use limit")
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}

// GetReferral issues (or returns) the phone's referral code.
func (h *DiscountHandler) GetReferral(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "phone query parameter is required")
		return
	}

	ref, err := h.service.GetOrCreateReferral(phone)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, ref)
}

type TrackReferralInput struct {
	Code      string `json:"code" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	SessionID string `json:"sessionId"`
}

// TrackReferral binds a referral code to a new phone's checkout.
func (h *DiscountHandler) TrackReferral(c *gin.Context) {
	var input TrackReferralInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.TrackReferral(input.Code, input.Phone, input.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReferralNotFound):
			response.Error(c, http.StatusNotFound, response.ErrReferralNotFound, "Referral code not found")
		case errors.Is(err, service.ErrSelfReferral):
			response.Fail(c, response.ErrSelfReferral, "You cannot use your own referral code")
		default:
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		}
		return
	}

	response.Success(c, result)
}

type CompleteReferralInput struct {
	Code  string `json:"code" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

// CompleteReferral marks a tracked referral as completed. Duplicate calls
// are silent no-ops by contract.
func (h *DiscountHandler) CompleteReferral(c *gin.Context) {
	var input CompleteReferralInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.CompleteReferral(input.Code, input.Phone); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, gin.H{"completed": true})
}

type OptOutInput struct {
	Phone string `json:"phone" binding:"required"`
}

// OptOut registers a phone in the do-not-message registry.
func (h *DiscountHandler) OptOut(c *gin.Context) {
	var input OptOutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.MarkOptOut(input.Phone); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, gin.H{"optedOut": true})
}

type CreateCouponInput struct {
	Code          string     `json:"code" binding:"required"`
	DiscountType  string     `json:"discountType" binding:"required,oneof=percentage fixed"`
	DiscountValue float64    `json:"discountValue" binding:"required,gt=0"`
	MaxUses       *int       `json:"maxUses"`
	ExpiresAt     *time.Time `json:"expiresAt"`
}

// CreateCoupon is the operator entry point for minting coupons.
func (h *DiscountHandler) CreateCoupon(c *gin.Context) {
	var input CreateCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	coupon := &model.Coupon{
		Code:          input.Code,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		MaxUses:       input.MaxUses,
		ExpiresAt:     input.ExpiresAt,
		Active:        true,
	}
	if err := h.service.CreateCoupon(coupon); err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, coupon)
}

type UpdateCouponInput struct {
	DiscountValue *float64   `json:"discountValue"`
	MaxUses       *int       `json:"maxUses"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	Active        *bool      `json:"active"`
}

// UpdateCoupon patches an existing coupon.
func (h *DiscountHandler) UpdateCoupon(c *gin.Context) {
	var input UpdateCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	updates := make(map[string]interface{})
	if input.DiscountValue != nil {
		updates["discount_value"] = *input.DiscountValue
	}
	if input.MaxUses != nil {
		updates["max_uses"] = *input.MaxUses
	}
	if input.ExpiresAt != nil {
		updates["expires_at"] = *input.ExpiresAt
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if len(updates) == 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "No fields to update")
		return
	}

	if err := h.service.UpdateCoupon(c.Param("id"), updates); err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrCouponNotFound, "Coupon not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, gin.H{"updated": true})
}

// DeactivateCoupon soft-disables a coupon without touching its audit trail.
func (h *DiscountHandler) DeactivateCoupon(c *gin.Context) {
	if err := h.service.DeactivateCoupon(c.Param("id")); err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrCouponNotFound, "Coupon not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, gin.H{"deactivated": true})
}

// ListCoupons returns a paged list for the back office.
func (h *DiscountHandler) ListCoupons(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	offset, limit := p.GetPageOffset()
	coupons, total, err := h.service.ListCoupons(offset, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, utils.PageResult{
		List:  coupons,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	})
}
