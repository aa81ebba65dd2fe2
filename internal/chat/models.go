package chat

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is one continuous study activity for one participant with one model.
//
// ContextResetAt is the watermark marking the start of the currently visible
// context window. It defaults to CreatedAt and only ever moves forward, in
// place; resetting never creates a new session row and never deletes messages.
type Session struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID      string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	UserID         uint64    `gorm:"index;not null" json:"-"`
	ModelName      string    `gorm:"type:varchar(100);not null" json:"model_name"`
	CreatedAt      time.Time `json:"created_at"`
	ContextResetAt time.Time `gorm:"index" json:"context_reset_at"`
}

func (Session) TableName() string { return "chat_sessions" }

// contextCutoff falls back to CreatedAt for rows that predate the watermark
// column; post-initialization the watermark is always set.
func (s *Session) contextCutoff() time.Time {
	if s.ContextResetAt.IsZero() {
		return s.CreatedAt
	}
	return s.ContextResetAt
}

// Message is one turn of a session. Rows are immutable once created and are
// ordered by Timestamp; the service stamps Timestamp explicitly on insert.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(26);index;not null" json:"session_id"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

func (Message) TableName() string { return "chat_messages" }
