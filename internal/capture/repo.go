package capture

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

func (r *Repo) CreatePrompt(ctx context.Context, p *Prompt) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repo) GetPromptByID(ctx context.Context, id uint64) (*Prompt, error) {
	var p Prompt
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) ListPromptsBySession(ctx context.Context, sessionID string) ([]Prompt, error) {
	var out []Prompt
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) SavePrompt(ctx context.Context, p *Prompt) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repo) DeletePrompt(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&Prompt{}, "id = ?", id).Error
}

func (r *Repo) CreateConcept(ctx context.Context, c *Concept) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) GetConceptByID(ctx context.Context, id uint64) (*Concept, error) {
	var c Concept
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) ListConceptsBySession(ctx context.Context, sessionID string) ([]Concept, error) {
	var out []Concept
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) SaveConcept(ctx context.Context, c *Concept) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *Repo) DeleteConcept(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&Concept{}, "id = ?", id).Error
}
