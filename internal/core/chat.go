package core

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const chatRecentDefault = 50

var ErrEmptyChatMessage = errors.New("name and message are required")

type ChatMessage struct {
	ID        int64     `json:"id,omitempty" db:"id"`
	Name      string    `json:"name" db:"name"`
	Message   string    `json:"message" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

func (m *ChatMessage) Validate() error {
	if m.Name == "" || m.Message == "" {
		return ErrEmptyChatMessage
	}
	return nil
}

type ChatDBStorer interface {
	Save(*ChatMessage) (*ChatMessage, error)
	Recent(limit int) ([]*ChatMessage, error)
}

type ChatRepository struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Save(msg *ChatMessage) (*ChatMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	var id int64
	err := r.db.Get(&id,
		`INSERT INTO chat_messages (name, message, timestamp) VALUES ($1, $2, $3) RETURNING id`,
		msg.Name,
		msg.Message,
		msg.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	msg.ID = id

	return msg, nil
}

// Recent returns the latest messages, oldest first.
func (r *ChatRepository) Recent(limit int) ([]*ChatMessage, error) {
	if limit <= 0 {
		limit = chatRecentDefault
	}

	messages := []*ChatMessage{}
	err := r.db.Select(&messages,
		`SELECT id, name, message, timestamp FROM (
			SELECT id, name, message, timestamp FROM chat_messages ORDER BY timestamp DESC LIMIT $1
		) recent ORDER BY timestamp ASC`,
		limit,
	)
	if err != nil {
		return nil, err
	}

	return messages, nil
}
