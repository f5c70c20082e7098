package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
	"github.com/gdg-garage/cafe-das-mulheres/internal/session"
	"github.com/sirupsen/logrus"
)

type SessionHandler struct {
	manager *session.Manager
}

func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

type SessionRequest struct {
	ID string `path:"id" doc:"Form session id"`
}

type SessionResponse struct {
	Status int
	Body   session.Snapshot
}

type SetFieldRequest struct {
	ID   string `path:"id" doc:"Form session id"`
	Body struct {
		Field string `json:"field" doc:"One of name, phone, birthdate, lotId"`
		Value string `json:"value" doc:"Raw value as typed"`
	}
}

type SetQuantityRequest struct {
	ID   string `path:"id" doc:"Form session id"`
	Body struct {
		Quantity int `json:"quantity" doc:"Number of tickets"`
	}
}

func snapshotResponse(status int, snap session.Snapshot) *SessionResponse {
	return &SessionResponse{Status: status, Body: snap}
}

func (h *SessionHandler) HandleCreate(ctx context.Context, input *struct{}) (*SessionResponse, error) {
	s := h.manager.Create()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, sessionError(err)
	}
	return snapshotResponse(http.StatusCreated, snap), nil
}

func (h *SessionHandler) HandleGet(ctx context.Context, input *SessionRequest) (*SessionResponse, error) {
	s, err := h.manager.Get(input.ID)
	if err != nil {
		return nil, sessionError(err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, sessionError(err)
	}
	return snapshotResponse(http.StatusOK, snap), nil
}

func (h *SessionHandler) HandleSetField(ctx context.Context, input *SetFieldRequest) (*SessionResponse, error) {
	s, err := h.manager.Get(input.ID)
	if err != nil {
		return nil, sessionError(err)
	}

	snap, err := s.SetField(ctx, models.Field(input.Body.Field), input.Body.Value)
	if err != nil {
		return nil, sessionError(err)
	}
	return snapshotResponse(http.StatusOK, snap), nil
}

func (h *SessionHandler) HandleSetQuantity(ctx context.Context, input *SetQuantityRequest) (*SessionResponse, error) {
	s, err := h.manager.Get(input.ID)
	if err != nil {
		return nil, sessionError(err)
	}

	snap, err := s.SetQuantity(ctx, input.Body.Quantity)
	if err != nil {
		return nil, sessionError(err)
	}
	return snapshotResponse(http.StatusOK, snap), nil
}

// HandleSubmit blocks until the webhook answers. The status code mirrors the
// outcome: 200 delivered, 422 invalid form, 502 delivery failed.
func (h *SessionHandler) HandleSubmit(ctx context.Context, input *SessionRequest) (*SessionResponse, error) {
	s, err := h.manager.Get(input.ID)
	if err != nil {
		return nil, sessionError(err)
	}

	snap, err := s.Submit(ctx)
	if err != nil {
		return nil, sessionError(err)
	}

	switch snap.Outcome.Status {
	case session.StatusSucceeded:
		return snapshotResponse(http.StatusOK, snap), nil
	case session.StatusFailed:
		return snapshotResponse(http.StatusBadGateway, snap), nil
	default:
		return snapshotResponse(http.StatusUnprocessableEntity, snap), nil
	}
}

func (h *SessionHandler) HandleDelete(ctx context.Context, input *SessionRequest) (*struct{}, error) {
	if err := h.manager.Discard(input.ID); err != nil {
		return nil, sessionError(err)
	}
	return nil, nil
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionClosed):
		return huma.Error404NotFound("Session not found")
	case errors.Is(err, session.ErrSubmitInFlight):
		return huma.Error409Conflict("Submission already in progress")
	case errors.Is(err, models.ErrUnknownField):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, models.ErrInvalidBirthdate):
		return huma.Error400BadRequest("Invalid birthdate")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("Request cancelled")
	default:
		logrus.WithError(err).Error("Session operation failed")
		return huma.Error500InternalServerError("Internal error")
	}
}
