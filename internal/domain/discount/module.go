package discount

import (
	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/handler"
	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/repository"
	"github.com/oraharon2020/tavati-sub001/internal/domain/discount/service"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/middleware"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// DiscountModule owns coupons, referrals and the opt-out registry.
type DiscountModule struct{}

func init() {
	registry.Register(&DiscountModule{})
}

func (m *DiscountModule) Name() string {
	return "discount"
}

func (m *DiscountModule) Priority() int {
	return 10
}

func (m *DiscountModule) Init(ctx *registry.ModuleContext) error {
	dRepo := repository.NewDiscountRepository(ctx.DB)
	dService := service.NewDiscountService(dRepo)
	dHandler := handler.NewDiscountHandler(dService)

	setupRoutes(ctx.Router, dHandler)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.DiscountHandler) {
	public := r.Group("")
	public.Use(middleware.RateLimitMiddleware())
	{
		public.POST("/coupon/validate", h.ValidateCoupon)
		public.PUT("/coupon/apply", h.ApplyCoupon)

		public.GET("/referral", h.GetReferral)
		public.POST("/referral", h.TrackReferral)
		public.PUT("/referral", h.CompleteReferral)

		public.POST("/optout", h.OptOut)
	}

	admin := r.Group("/admin/coupons")
	admin.Use(middleware.OperatorAuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.POST("", h.CreateCoupon)
		admin.GET("", h.ListCoupons)
		admin.PUT("/:id", h.UpdateCoupon)
		admin.DELETE("/:id", h.DeactivateCoupon)
	}
}
