// Package lots picks which ticket lots the form offers.
package lots

import (
	"cmp"
	"errors"
	"slices"

	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
)

var ErrNoLotAvailable = errors.New("no lot available")

// Pickable returns the active lots that still have tickets, cheapest first.
// The input slice is left untouched.
func Pickable(lots []models.Lot) []models.Lot {
	return byPrice(lots, func(l models.Lot) bool {
		return l.IsActive && l.Quantity > 0 && l.Valid()
	})
}

// Default returns the cheapest active lot. Sold-out lots still count here;
// availability is checked again on submit.
func Default(lots []models.Lot) (models.Lot, error) {
	active := byPrice(lots, func(l models.Lot) bool {
		return l.IsActive && l.Valid()
	})
	if len(active) == 0 {
		return models.Lot{}, ErrNoLotAvailable
	}
	return active[0], nil
}

// Preselect returns the lot the form starts with: the cheapest pickable lot,
// or the Default lot when every active lot is sold out.
func Preselect(lots []models.Lot) (models.Lot, error) {
	if pickable := Pickable(lots); len(pickable) > 0 {
		return pickable[0], nil
	}
	return Default(lots)
}

func byPrice(lots []models.Lot, keep func(models.Lot) bool) []models.Lot {
	out := make([]models.Lot, 0, len(lots))
	for _, l := range lots {
		if keep(l) {
			out = append(out, l)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Lot) int {
		return cmp.Compare(a.Price, b.Price)
	})
	return out
}
