package core

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// QueryStatus tracks a patient query through the doctor's inbox.
type QueryStatus string

const (
	QueryUnread  QueryStatus = "unread"
	QueryRead    QueryStatus = "read"
	QueryReplied QueryStatus = "replied"
)

var ErrUnknownQueryStatus = errors.New("unknown query status")

func ParseQueryStatus(s string) (QueryStatus, error) {
	switch st := QueryStatus(s); st {
	case QueryUnread, QueryRead, QueryReplied:
		return st, nil
	default:
		return "", ErrUnknownQueryStatus
	}
}

// Query is a message from a patient to a doctor, identified by emails.
type Query struct {
	ID        string      `json:"id" db:"id"`
	From      string      `json:"from" db:"from_email"`
	To        string      `json:"to" db:"to_email"`
	Message   string      `json:"message" db:"message"`
	Response  *string     `json:"response,omitempty" db:"response"`
	Status    QueryStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

// CanView reports whether the given email is a party to the query.
func (q *Query) CanView(email string) bool {
	return q.From == email || q.To == email
}

const queryColumns = `id, from_email, to_email, message, response, status, created_at, updated_at`

type QueriesDBStorer interface {
	Create(*Query) (*Query, error)
	Find(id string) (*Query, error)
	Sent(fromEmail string) ([]*Query, error)
	Received(toEmail string, status QueryStatus) ([]*Query, error)
	Respond(id string, response string) (*Query, error)
	SetStatus(id string, status QueryStatus) (*Query, error)
	Delete(id string) (bool, error)
}

type QueriesRepository struct {
	db *sqlx.DB
}

func NewQueriesRepository(db *sqlx.DB) *QueriesRepository {
	return &QueriesRepository{db: db}
}

func (r *QueriesRepository) Create(q *Query) (*Query, error) {
	q.Status = QueryUnread

	err := r.db.Get(q,
		`INSERT INTO queries (from_email, to_email, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+queryColumns,
		q.From,
		q.To,
		q.Message,
		string(q.Status),
	)
	if err != nil {
		return nil, err
	}

	return q, nil
}

func (r *QueriesRepository) Find(id string) (*Query, error) {
	q := &Query{}

	err := r.db.Get(q, `SELECT `+queryColumns+` FROM queries WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		return nil, err
	}

	return q, nil
}

func (r *QueriesRepository) Sent(fromEmail string) ([]*Query, error) {
	queries := []*Query{}

	err := r.db.Select(&queries,
		`SELECT `+queryColumns+` FROM queries WHERE from_email = $1 ORDER BY created_at DESC`,
		fromEmail,
	)
	if err != nil {
		return nil, err
	}

	return queries, nil
}

// Received lists the doctor's inbox; empty status means any.
func (r *QueriesRepository) Received(toEmail string, status QueryStatus) ([]*Query, error) {
	queries := []*Query{}

	var err error
	if status == "" {
		err = r.db.Select(&queries,
			`SELECT `+queryColumns+` FROM queries WHERE to_email = $1 ORDER BY created_at DESC`,
			toEmail,
		)
	} else {
		err = r.db.Select(&queries,
			`SELECT `+queryColumns+` FROM queries WHERE to_email = $1 AND status = $2 ORDER BY created_at DESC`,
			toEmail,
			string(status),
		)
	}
	if err != nil {
		return nil, err
	}

	return queries, nil
}

func (r *QueriesRepository) Respond(id string, response string) (*Query, error) {
	q := &Query{}

	err := r.db.Get(q,
		`UPDATE queries SET response = $1, status = $2, updated_at = NOW() WHERE id = $3 RETURNING `+queryColumns,
		response,
		string(QueryReplied),
		id,
	)
	if err != nil {
		return nil, err
	}

	return q, nil
}

func (r *QueriesRepository) SetStatus(id string, status QueryStatus) (*Query, error) {
	q := &Query{}

	err := r.db.Get(q,
		`UPDATE queries SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING `+queryColumns,
		string(status),
		id,
	)
	if err != nil {
		return nil, err
	}

	return q, nil
}

func (r *QueriesRepository) Delete(id string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM queries WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
