package payment

import (
	discountRepo "github.com/oraharon2020/tavati-sub001/internal/domain/discount/repository"
	discountService "github.com/oraharon2020/tavati-sub001/internal/domain/discount/service"
	"github.com/oraharon2020/tavati-sub001/internal/domain/payment/handler"
	"github.com/oraharon2020/tavati-sub001/internal/domain/payment/processor"
	"github.com/oraharon2020/tavati-sub001/internal/domain/payment/service"
	sessionRepo "github.com/oraharon2020/tavati-sub001/internal/domain/session/repository"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/config"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// PaymentModule owns the settlement protocol.
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// Depends on session and discount.
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	sRepo := sessionRepo.NewSessionRepository(ctx.DB)
	dService := discountService.NewDiscountService(discountRepo.NewDiscountRepository(ctx.DB))
	approver := processor.NewClient(config.GlobalConfig.Payment)

	pService := service.NewPaymentService(sRepo, dService, approver)
	pHandler := handler.NewPaymentHandler(pService)

	setupRoutes(ctx.Router, pHandler)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PaymentHandler) {
	// No auth and no rate limit: the processor must always get its ack.
	r.POST("/payment/webhook", h.Webhook)
}
