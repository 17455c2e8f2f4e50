package core

import (
	"errors"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jmoiron/sqlx"
)

type CallType string

const (
	VoiceCall CallType = "voice"
	VideoCall CallType = "video"
)

var ErrIncompleteCallLog = errors.New("type, participants, startTime, and endTime are required")

// CallLog is the single call history record: who took part and when.
type CallLog struct {
	ID           int64     `json:"id,omitempty" db:"id"`
	Type         CallType  `json:"type" db:"type"`
	Participants []string  `json:"participants" db:"-"`
	StartTime    time.Time `json:"startTime" db:"start_time"`
	EndTime      time.Time `json:"endTime" db:"end_time"`
}

func (c *CallLog) Validate() error {
	if c.Type == "" || len(c.Participants) == 0 || c.StartTime.IsZero() || c.EndTime.IsZero() {
		return ErrIncompleteCallLog
	}
	return nil
}

func (c *CallLog) Duration() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}

type CallLogDBStorer interface {
	Save(*CallLog) (*CallLog, error)
}

type CallLogRepository struct {
	db *sqlx.DB
}

func NewCallLogRepository(db *sqlx.DB) *CallLogRepository {
	return &CallLogRepository{db: db}
}

func (r *CallLogRepository) Save(c *CallLog) (*CallLog, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	participants := pgtype.TextArray{}
	if err := participants.Set(c.Participants); err != nil {
		return nil, err
	}

	var id int64
	err := r.db.Get(&id,
		`INSERT INTO call_logs (type, participants, start_time, end_time) VALUES ($1, $2, $3, $4) RETURNING id`,
		string(c.Type),
		participants,
		c.StartTime,
		c.EndTime,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id

	return c, nil
}
