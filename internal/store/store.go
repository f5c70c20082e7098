// Package store reads ticket lots from the document store backing the form.
package store

import (
	"context"
	"errors"

	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
)

var ErrLotNotFound = errors.New("lot not found")

// LotStore is the read side of the lot collection. Lots are written by the
// event organisers directly in the store.
type LotStore interface {
	ListLots(ctx context.Context) ([]models.Lot, error)
	GetLot(ctx context.Context, id string) (models.Lot, error)
}
