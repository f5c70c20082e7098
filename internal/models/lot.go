package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lot struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	Price     float64   `json:"price" gorm:"check:price >= 0"`
	Quantity  int       `json:"quantity" gorm:"check:quantity >= 0"`
	IsActive  bool      `json:"isActive" gorm:"index"`
	CreatedAt time.Time `json:"createdAt"`
}

// Valid reports whether the lot satisfies price >= 0 and quantity >= 0.
func (l Lot) Valid() bool {
	return l.Price >= 0 && l.Quantity >= 0
}

func (l *Lot) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
