// Package survey stores pre- and post-activity questionnaire responses.
package survey

import "time"

const (
	TypePreActivity  = "pre-activity"
	TypePostActivity = "post-activity"
)

// Response is one submitted questionnaire. Answers are stored as the raw
// JSON object the frontend submitted; the backend never interprets them.
type Response struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"user_id"`
	SessionID *string   `gorm:"type:varchar(26);index" json:"session_id"`
	Type      string    `gorm:"type:varchar(20);index;not null" json:"questionnaire_type"`
	Responses string    `gorm:"type:text;not null" json:"responses"`
	CreatedAt time.Time `json:"created_at"`
}

func (Response) TableName() string { return "questionnaire_responses" }
