package handler

import (
	"errors"
	"net/http"

	"github.com/oraharon2020/tavati-sub001/internal/domain/reminder/service"
	"github.com/oraharon2020/tavati-sub001/pkg/response"

	"github.com/gin-gonic/gin"
)

type CronHandler struct {
	service service.ReminderService
}

func NewCronHandler(s service.ReminderService) *CronHandler {
	return &CronHandler{service: s}
}

// RunReminders triggers one scheduler tick and returns its statistics.
func (h *CronHandler) RunReminders(c *gin.Context) {
	stats, err := h.service.RunReminders(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			response.Error(c, http.StatusConflict, response.ErrCronRunBusy, "Reminder run already in progress")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, gin.H{"tiers": stats})
}

// RunCleanup triggers one retention sweep and returns its statistics.
func (h *CronHandler) RunCleanup(c *gin.Context) {
	stats, err := h.service.RunCleanup(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			response.Error(c, http.StatusConflict, response.ErrCronRunBusy, "Cleanup run already in progress")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, stats)
}
