package handler

import (
	"net/http"
	"strings"

	"github.com/oraharon2020/tavati-sub001/internal/domain/payment/model"
	"github.com/oraharon2020/tavati-sub001/internal/domain/payment/service"
	"github.com/oraharon2020/tavati-sub001/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service service.PaymentService
}

func NewPaymentHandler(s service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: s}
}

// Webhook receives the processor's server-to-server notification. The
// response is always {"status":1}: a non-success answer would trigger the
// processor's retry storm, so malformed payloads are logged and swallowed.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var n *model.Notification

	contentType := c.ContentType()
	if strings.Contains(contentType, "application/json") {
		var parsed model.Notification
		if err := c.ShouldBindJSON(&parsed); err != nil {
			logger.Error("malformed payment webhook JSON, acknowledging anyway",
				zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"status": 1})
			return
		}
		n = &parsed
	} else {
		if err := c.Request.ParseForm(); err != nil {
			logger.Error("malformed payment webhook form, acknowledging anyway",
				zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"status": 1})
			return
		}
		n = model.FromValues(c.Request.PostForm)
	}

	h.service.HandleNotification(c.Request.Context(), n)

	c.JSON(http.StatusOK, gin.H{"status": 1})
}
