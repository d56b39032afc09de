package service

import (
	"encoding/json"
	"errors"

	"github.com/oraharon2020/tavati-sub001/internal/domain/session/model"
	"github.com/oraharon2020/tavati-sub001/internal/domain/session/repository"
	"github.com/oraharon2020/tavati-sub001/internal/pkg/phone"

	"gorm.io/gorm"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrPermissionDenied = errors.New("requesting phone does not own this session")
	ErrStatusNotAllowed = errors.New("status cannot be set through this endpoint")
)

// ContentPatch is the merge payload for PUT /sessions/:id. Nil fields are
// left untouched; present fields win last-write-wins.
type ContentPatch struct {
	ClaimData   json.RawMessage `json:"claimData,omitempty"`
	Messages    json.RawMessage `json:"messages,omitempty"`
	CurrentStep *int            `json:"currentStep,omitempty"`
	Status      *string         `json:"status,omitempty"`
}

type SessionService interface {
	CreateSession(rawPhone, serviceType string) (*model.ClaimSession, error)
	GetSession(id string) (*model.ClaimSession, error)
	UpdateContent(id string, patch ContentPatch) (*model.ClaimSession, error)
	ListByPhone(rawPhone string) ([]model.ClaimSession, error)
	DeleteSession(id, requestingPhone string) error
}

type sessionService struct {
	repo repository.SessionRepository
}

func NewSessionService(repo repository.SessionRepository) SessionService {
	return &sessionService{repo: repo}
}

func (s *sessionService) CreateSession(rawPhone, serviceType string) (*model.ClaimSession, error) {
	session := &model.ClaimSession{
		Phone:       phone.Normalize(rawPhone),
		ServiceType: serviceType,
		Status:      model.StatusDraft,
	}
	if err := s.repo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) GetSession(id string) (*model.ClaimSession, error) {
	session, err := s.repo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

// UpdateContent merges the patch. Content fields are last-write-wins;
// status only ever moves forward, and a backward or redundant status in the
// patch is a silent no-op (a user editing on a second device must not fight
// the state machine). paid is reserved for the settlement handler.
func (s *sessionService) UpdateContent(id string, patch ContentPatch) (*model.ClaimSession, error) {
	if patch.Status != nil {
		if !model.KnownStatus(*patch.Status) {
			return nil, ErrStatusNotAllowed
		}
		if *patch.Status == model.StatusPaid {
			return nil, ErrStatusNotAllowed
		}
	}

	updates := make(map[string]interface{})
	if patch.ClaimData != nil {
		updates["claim_data"] = patch.ClaimData
	}
	if patch.Messages != nil {
		updates["messages"] = patch.Messages
	}
	if patch.CurrentStep != nil {
		updates["current_step"] = *patch.CurrentStep
	}

	if len(updates) > 0 {
		affected, err := s.repo.UpdateContent(id, updates)
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, ErrSessionNotFound
		}

		// First content edit promotes draft → in_progress; no-op afterwards.
		if patch.Status == nil {
			if _, err := s.repo.AdvanceStatus(id, model.StatusInProgress); err != nil {
				return nil, err
			}
		}
	}

	if patch.Status != nil {
		// Conditional write: only applies when the session sits below the
		// target status. Zero rows is the idempotent no-op case.
		if _, err := s.repo.AdvanceStatus(id, *patch.Status); err != nil {
			return nil, err
		}
	}

	session, err := s.repo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

func (s *sessionService) ListByPhone(rawPhone string) ([]model.ClaimSession, error) {
	return s.repo.ListByPhone(phone.Normalize(rawPhone))
}

// DeleteSession removes a session after verifying the requesting phone owns
// it. The ownership check compares canonical forms.
func (s *sessionService) DeleteSession(id, requestingPhone string) error {
	session, err := s.repo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	if session.Phone != phone.Normalize(requestingPhone) {
		return ErrPermissionDenied
	}
	return s.repo.Delete(session)
}
