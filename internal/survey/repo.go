package survey

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

func (r *Repo) Create(ctx context.Context, resp *Response) error {
	return r.db.WithContext(ctx).Create(resp).Error
}

func (r *Repo) GetByID(ctx context.Context, id uint64) (*Response, error) {
	var resp Response
	if err := r.db.WithContext(ctx).First(&resp, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListByUser filters by type and/or session when non-empty, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID uint64, questionnaireType, sessionID string) ([]Response, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if questionnaireType != "" {
		q = q.Where("type = ?", questionnaireType)
	}
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}

	var out []Response
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FirstMatching returns the earliest response matching the filters, or
// gorm.ErrRecordNotFound.
func (r *Repo) FirstMatching(ctx context.Context, userID uint64, questionnaireType, sessionID string) (*Response, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, questionnaireType)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}

	var resp Response
	if err := q.Order("created_at ASC").First(&resp).Error; err != nil {
		return nil, err
	}
	return &resp, nil
}
