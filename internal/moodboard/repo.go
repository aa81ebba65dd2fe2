package moodboard

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, img *Image) error {
	return r.db.WithContext(ctx).Create(img).Error
}

func (r *Repo) GetByID(ctx context.Context, id uint64) (*Image, error) {
	var img Image
	if err := r.db.WithContext(ctx).First(&img, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID uint64) ([]Image, error) {
	var out []Image
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&Image{}, "id = ?", id).Error
}

func (r *Repo) DeleteByUser(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).Delete(&Image{}, "user_id = ?", userID).Error
}
