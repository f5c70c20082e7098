package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotJSON_RoundTrip(t *testing.T) {
	lot := Lot{
		ID:        "lot-1",
		Name:      "Primeiro lote",
		Price:     49.9,
		Quantity:  12,
		IsActive:  true,
		CreatedAt: time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC),
	}

	payload, err := json.Marshal(lot)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.ElementsMatch(t,
		[]string{"id", "name", "price", "quantity", "isActive", "createdAt"},
		keys(raw),
	)
	assert.NotContains(t, raw, "phone")
	assert.EqualValues(t, 12, raw["quantity"])

	var decoded Lot
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, lot.ID, decoded.ID)
	assert.Equal(t, lot.Name, decoded.Name)
	assert.Equal(t, lot.Price, decoded.Price)
	assert.Equal(t, lot.Quantity, decoded.Quantity)
	assert.Equal(t, lot.IsActive, decoded.IsActive)
	assert.True(t, lot.CreatedAt.Equal(decoded.CreatedAt))
}

func TestLotValid(t *testing.T) {
	assert.True(t, Lot{Price: 0, Quantity: 0}.Valid())
	assert.False(t, Lot{Price: -1, Quantity: 1}.Valid())
	assert.False(t, Lot{Price: 1, Quantity: -1}.Valid())
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
