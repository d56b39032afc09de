package reminder

import (
	discountRepo "github.com/oraharon2020/tavati-sub001/internal/domain/discount/repository"
	discountService "github.com/oraharon2020/tavati-sub001/internal/domain/discount/service"
	"github.com/oraharon2020/tavati-sub001/internal/domain/reminder/handler"
	"github.com/oraharon2020/tavati-sub001/internal/domain/reminder/repository"
	"github.com/oraharon2020/tavati-sub001/internal/domain/reminder/service"
	sessionRepo "github.com/oraharon2020/tavati-sub001/internal/domain/session/repository"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/config"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/middleware"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/registry"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/sms"

	"github.com/gin-gonic/gin"
)

// ReminderModule owns the scheduler and the retention sweeper.
type ReminderModule struct{}

func init() {
	registry.Register(&ReminderModule{})
}

func (m *ReminderModule) Name() string {
	return "reminder"
}

func (m *ReminderModule) Priority() int {
	// Last: builds on session, discount and the SMS gateway.
	return 30
}

func (m *ReminderModule) Init(ctx *registry.ModuleContext) error {
	smsCfg := config.GlobalConfig.SMS
	gateway := sms.NewGateway(
		sms.NewSMS4FreeProvider(smsCfg.SMS4Free, smsCfg.Sender),
		sms.NewAliyunProvider(smsCfg.Aliyun),
	)

	sRepo := sessionRepo.NewSessionRepository(ctx.DB)
	dService := discountService.NewDiscountService(discountRepo.NewDiscountRepository(ctx.DB))
	rRepo := repository.NewReminderRepository(ctx.DB)

	rService := service.NewReminderService(sRepo, dService, gateway, rRepo, ctx.Redis)
	rHandler := handler.NewCronHandler(rService)

	setupRoutes(ctx.Router, rHandler)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CronHandler) {
	g := r.Group("/cron")
	g.Use(middleware.CronAuthMiddleware())
	{
		g.POST("/reminders", h.RunReminders)
		g.POST("/cleanup", h.RunCleanup)
	}
}
