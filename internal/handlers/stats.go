package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/cafe-das-mulheres/internal/stats"
	"github.com/sirupsen/logrus"
)

type StatsHandler struct {
	recorder stats.Recorder
}

func NewStatsHandler(recorder stats.Recorder) *StatsHandler {
	return &StatsHandler{recorder: recorder}
}

type StatsResponse struct {
	Body struct {
		Succeeded int64 `json:"succeeded"`
		Failed    int64 `json:"failed"`
		Invalid   int64 `json:"invalid"`
	}
}

func (h *StatsHandler) HandleStats(ctx context.Context, input *struct{}) (*StatsResponse, error) {
	counts, err := h.recorder.Counts(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to read submission stats")
		return nil, huma.Error503ServiceUnavailable("Stats unavailable")
	}

	res := &StatsResponse{}
	res.Body.Succeeded = counts[stats.OutcomeSucceeded]
	res.Body.Failed = counts[stats.OutcomeFailed]
	res.Body.Invalid = counts[stats.OutcomeInvalid]
	return res, nil
}
