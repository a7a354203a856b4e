package entities

import "time"

// Conversation represents a chat conversation between a patient and the
// assistant, as stored in the backing document store.
type Conversation struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Topic        string    `json:"topic" db:"topic"`
	MessageCount int       `json:"message_count" db:"message_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Header returns the compact view embedded in history payloads.
func (c *Conversation) Header() ConversationHeader {
	topic := c.Topic
	if topic == "" {
		topic = "General"
	}
	return ConversationHeader{
		ID:           c.ID,
		CreatedAt:    c.CreatedAt,
		Topic:        topic,
		MessageCount: c.MessageCount,
	}
}
