package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
	"gorm.io/gorm"
)

type GormLotStore struct {
	db *gorm.DB
}

func NewGormLotStore(db *gorm.DB) *GormLotStore {
	return &GormLotStore{db: db}
}

func (s *GormLotStore) ListLots(ctx context.Context) ([]models.Lot, error) {
	var lots []models.Lot
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return lots, nil
}

func (s *GormLotStore) GetLot(ctx context.Context, id string) (models.Lot, error) {
	var lot models.Lot
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&lot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Lot{}, ErrLotNotFound
	}
	if err != nil {
		return models.Lot{}, fmt.Errorf("get lot %s: %w", id, err)
	}
	return lot, nil
}
