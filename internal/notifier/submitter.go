package notifier

import (
	"context"

	"github.com/gdg-garage/cafe-das-mulheres/internal/form"
	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
	"github.com/gdg-garage/cafe-das-mulheres/internal/webhook"
	"github.com/sirupsen/logrus"
)

// LotGetter is the part of the lot store the notifier needs.
type LotGetter interface {
	GetLot(ctx context.Context, id string) (models.Lot, error)
}

// NotifyingSubmitter announces every delivered registration. Notification
// problems are logged and never fail the submission.
type NotifyingSubmitter struct {
	next     webhook.Submitter
	notifier Notifier
	lots     LotGetter
}

func NewNotifyingSubmitter(next webhook.Submitter, notifier Notifier, lots LotGetter) *NotifyingSubmitter {
	return &NotifyingSubmitter{next: next, notifier: notifier, lots: lots}
}

func (s *NotifyingSubmitter) Submit(ctx context.Context, payload form.Payload) error {
	if err := s.next.Submit(ctx, payload); err != nil {
		return err
	}

	log := logrus.WithField("lot_id", payload.LotID)

	var lot models.Lot
	if s.lots != nil {
		var err error
		lot, err = s.lots.GetLot(ctx, payload.LotID)
		if err != nil {
			log.WithError(err).Warn("Failed to load lot for notification")
		}
	}

	if err := s.notifier.NotifyRegistration(payload, lot); err != nil {
		log.WithError(err).Warn("Failed to send notification")
	}

	return nil
}
