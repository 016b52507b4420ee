package repository

import (
	"fmt"

	"gorm.io/gorm"

	"chartqa/internal/model"
)

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(image *model.Image) error {
	if err := r.db.Create(image).Error; err != nil {
		return fmt.Errorf("create image failed: %w", err)
	}
	return nil
}

func (r *ImageRepository) ListBySessionID(sessionID string) ([]model.Image, error) {
	var images []model.Image
	if err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("list images failed: %w", err)
	}
	return images, nil
}
