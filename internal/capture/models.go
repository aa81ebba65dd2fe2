// Package capture stores the prompts and concepts a participant pulls out of
// a conversation. Prompts feed image generation; concepts are notes.
package capture

import "time"

// Prompt is a generation-ready text capture, optionally traced back to the
// message it was taken from.
type Prompt struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID       string    `gorm:"type:varchar(26);index;not null" json:"session_id"`
	Title           *string   `gorm:"type:varchar(150)" json:"title"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	SourceMessageID *uint64   `gorm:"index" json:"source_message_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Prompt) TableName() string { return "prompts" }

// Concept is a captured idea or theme from the conversation.
type Concept struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID       string    `gorm:"type:varchar(26);index;not null" json:"session_id"`
	Title           *string   `gorm:"type:varchar(150)" json:"title"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	SourceMessageID *uint64   `gorm:"index" json:"source_message_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Concept) TableName() string { return "concepts" }
