package handler

import (
	"errors"
	"net/http"

	"github.com/oraharon2020/tavati-sub001/internal/domain/session/service"
	"github.com/oraharon2020/tavati-sub001/pkg/response"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	service service.SessionService
}

func NewSessionHandler(s service.SessionService) *SessionHandler {
	return &SessionHandler{service: s}
}

type CreateSessionInput struct {
	Phone       string `json:"phone" binding:"required"`
	ServiceType string `json:"serviceType" binding:"required"`
}

// CreateSession opens a new draft session for a phone.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var input CreateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	session, err := h.service.CreateSession(input.Phone, input.ServiceType)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, session)
}

// ListSessions returns the phone's sessions, most recent first.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "phone query parameter is required")
		return
	}

	sessions, err := h.service.ListByPhone(phone)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, sessions)
}

// GetSession returns a single session by id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.service.GetSession(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrSessionNotFound, "Session not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, session)
}

// UpdateSession merges a content patch into the session.
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	var patch service.ContentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	session, err := h.service.UpdateContent(c.Param("id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.ErrSessionNotFound, "Session not found")
		case errors.Is(err, service.ErrStatusNotAllowed):
			response.Error(c, http.StatusBadRequest, response.ErrInvalidTransition, "Requested status is not allowed")
		default:
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		}
		return
	}

	response.Success(c, session)
}

// DeleteSession removes a session; the requesting phone must own it.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id := c.Query("id")
	phone := c.Query("phone")
	if id == "" || phone == "" {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "id and phone query parameters are required")
		return
	}

	if err := h.service.DeleteSession(id, phone); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.ErrSessionNotFound, "Session not found")
		case errors.Is(err, service.ErrPermissionDenied):
			response.Error(c, http.StatusForbidden, response.ErrNotSessionOwner, "Phone does not own this session")
		default:
			response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		}
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
