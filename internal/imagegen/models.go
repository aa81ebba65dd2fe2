// Package imagegen renders captured prompts into product images through an
// asynchronous job queue.
package imagegen

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

type Job struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	UserID    uint64 `gorm:"index;not null" json:"user_id"`
	SessionID string `gorm:"size:26;index;not null" json:"session_id"`
	PromptID  uint64 `gorm:"index;not null" json:"prompt_id"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when succeeded
	ImageID *uint64 `gorm:"index" json:"image_id,omitempty"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string { return "image_jobs" }

// GeneratedImage is the rendered output for one prompt. At most one image
// exists per prompt; regeneration overwrites the file, not the row.
type GeneratedImage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"size:26;index;not null" json:"session_id"`
	PromptID  uint64    `gorm:"uniqueIndex;not null" json:"prompt_id"`
	ImagePath string    `gorm:"type:varchar(512);not null" json:"image_path"`
	CreatedAt time.Time `json:"created_at"`
}

func (GeneratedImage) TableName() string { return "generated_images" }
