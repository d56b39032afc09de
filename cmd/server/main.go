package main

import (
	"log"

	_ "github.com/oraharon2020/tavati-sub001/internal/domain/discount"
	_ "github.com/oraharon2020/tavati-sub001/internal/domain/payment"
	_ "github.com/oraharon2020/tavati-sub001/internal/domain/reminder"
	_ "github.com/oraharon2020/tavati-sub001/internal/domain/session"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/config"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/middleware"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/registry"
	"github.com/oraharon2020/tavati-sub001/pkg/database"
	"github.com/oraharon2020/tavati-sub001/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()

	logger.Init(config.GlobalConfig.App.Debug)
	defer logger.Sync()

	db := database.InitDatabase()
	rdb := database.InitRedis()

	gin.SetMode(config.GlobalConfig.Server.Mode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.TraceMiddleware(),
		middleware.LoggerMiddleware(),
		cors.Default(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	ctx := &registry.ModuleContext{
		DB:     db,
		Redis:  rdb,
		Router: router,
	}
	if err := registry.InitModules(ctx); err != nil {
		log.Fatalf("Failed to initialize modules: %v", err)
	}

	addr := ":" + config.GlobalConfig.Server.Port
	logger.Info("server listening on " + addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
