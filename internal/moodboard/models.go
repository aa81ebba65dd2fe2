// Package moodboard stores participant-uploaded inspiration images.
package moodboard

import "time"

type Image struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint64    `gorm:"index;not null" json:"user_id"`
	ImagePath        string    `gorm:"type:varchar(512);not null" json:"image_path"`
	OriginalFilename string    `gorm:"type:varchar(255)" json:"original_filename"`
	CreatedAt        time.Time `json:"created_at"`
}

func (Image) TableName() string { return "moodboard_images" }
