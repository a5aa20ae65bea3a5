package models

import (
	"time"

	"github.com/google/uuid"
)

// Role tags one side of a chat exchange. Only user and model turns exist.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single immutable turn within a chat. A zero ID marks a
// turn that has been appended in memory but not yet persisted.
type Message struct {
	ID        int64     `json:"-"`
	ChatID    string    `json:"-"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat groups an ordered sequence of turns owned by a single user.
type Chat struct {
	ID        string    `json:"_id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatSummary is the list-view projection of a chat.
type ChatSummary struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewChat builds an unsaved chat with an empty turn sequence.
func NewChat(userID int64, title string) *Chat {
	now := time.Now().UTC()
	return &Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a turn to the in-memory sequence. Turns are never edited or
// removed individually; persistence happens on the next store save.
func (c *Chat) Append(role Role, content string) {
	c.Messages = append(c.Messages, Message{
		ChatID:    c.ID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
