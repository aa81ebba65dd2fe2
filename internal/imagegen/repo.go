package imagegen

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateJob(ctx context.Context, j *Job) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// ActivePromptIDs returns prompt IDs with a queued or running job in the
// session, so enqueueing can skip work already in flight.
func (r *Repo) ActivePromptIDs(ctx context.Context, sessionID string) (map[uint64]bool, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&Job{}).
		Where("session_id = ? AND status IN ?", sessionID, []JobStatus{JobQueued, JobRunning}).
		Pluck("prompt_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": JobRunning, "updated_at": time.Now().UTC()}).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, imageID uint64) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     JobSucceeded,
			"image_id":   imageID,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, msg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     JobFailed,
			"error":      msg,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *Repo) CreateImage(ctx context.Context, img *GeneratedImage) error {
	return r.db.WithContext(ctx).Create(img).Error
}

func (r *Repo) GetImageByID(ctx context.Context, id uint64) (*GeneratedImage, error) {
	var img GeneratedImage
	if err := r.db.WithContext(ctx).First(&img, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *Repo) GetImageByPromptID(ctx context.Context, promptID uint64) (*GeneratedImage, error) {
	var img GeneratedImage
	if err := r.db.WithContext(ctx).First(&img, "prompt_id = ?", promptID).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *Repo) ListImagesBySession(ctx context.Context, sessionID string) ([]GeneratedImage, error) {
	var out []GeneratedImage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
