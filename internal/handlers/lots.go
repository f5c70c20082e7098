package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/cafe-das-mulheres/internal/lots"
	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
	"github.com/gdg-garage/cafe-das-mulheres/internal/session"
	"github.com/gdg-garage/cafe-das-mulheres/internal/store"
	"github.com/sirupsen/logrus"
)

type LotsHandler struct {
	store   store.LotStore
	timeout time.Duration
}

func NewLotsHandler(s store.LotStore, timeout time.Duration) *LotsHandler {
	return &LotsHandler{store: s, timeout: timeout}
}

type ListLotsResponse struct {
	Body struct {
		Lots         []models.Lot `json:"lots" doc:"Active lots with tickets left, cheapest first"`
		DefaultLotID string       `json:"defaultLotId,omitempty" doc:"Lot preselected by the form"`
	}
}

func (h *LotsHandler) HandleList(ctx context.Context, input *struct{}) (*ListLotsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	all, err := h.store.ListLots(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list lots")
		return nil, huma.Error502BadGateway(session.MsgLotsFailed)
	}

	res := &ListLotsResponse{}
	res.Body.Lots = lots.Pickable(all)
	if def, err := lots.Preselect(all); err == nil {
		res.Body.DefaultLotID = def.ID
	}
	return res, nil
}

type GetLotRequest struct {
	ID string `path:"id" doc:"Lot id"`
}

type GetLotResponse struct {
	Body models.Lot
}

func (h *LotsHandler) HandleGet(ctx context.Context, input *GetLotRequest) (*GetLotResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	lot, err := h.store.GetLot(ctx, input.ID)
	if errors.Is(err, store.ErrLotNotFound) {
		return nil, huma.Error404NotFound("Lot not found")
	}
	if err != nil {
		logrus.WithError(err).WithField("lot_id", input.ID).Error("Failed to get lot")
		return nil, huma.Error502BadGateway(session.MsgLotsFailed)
	}

	return &GetLotResponse{Body: lot}, nil
}
