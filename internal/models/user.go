package models

import "time"

// User is a study participant, identified by email only.
type User struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`

	// Comma-joined model IDs in randomized order, assigned at first login
	// for counterbalancing across participants.
	ModelOrder string `gorm:"type:varchar(255)" json:"model_order"`

	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }
