package core

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}

	sqlxDb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDb.Close() })

	return sqlxDb, mock
}

var userRowColumns = []string{"id", "uid", "email", "username", "role", "created_at", "updated_at"}

func TestUserRepositoryAuthenticate(t *testing.T) {
	t.Run("matching credentials", func(t *testing.T) {
		db, mock := newMockDB(t)
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE password = crypt`).
			WithArgs("doctor123", "dr.smith@example.com").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow("u-1", nil, "dr.smith@example.com", "Dr. John Smith", "doctor", now, now))

		u, err := NewUserRepository(db).Authenticate("dr.smith@example.com", "doctor123")
		require.Nil(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "u-1", u.ID)
		assert.True(t, u.IsDoctor())
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password returns no user and no error", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE password = crypt`).
			WillReturnError(sql.ErrNoRows)

		u, err := NewUserRepository(db).Authenticate("dr.smith@example.com", "nope")
		assert.Nil(t, err)
		assert.Nil(t, u)
	})
}

func TestUserRepositoryFindByRole(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE role = \$1 ORDER BY username`).
		WithArgs("doctor").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", nil, "a@example.com", "Dr. A", "doctor", now, now).
			AddRow("u-2", nil, "b@example.com", "Dr. B", "doctor", now, now))

	users, err := NewUserRepository(db).FindByRole(RoleDoctor)
	require.Nil(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "Dr. B", users[1].Username)
}

func TestChatRepositorySave(t *testing.T) {
	t.Run("stores message", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectQuery(`INSERT INTO chat_messages`).
			WithArgs("Alice", "hello", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		msg, err := NewChatRepository(db).Save(&ChatMessage{Name: "Alice", Message: "hello"})
		require.Nil(t, err)
		assert.Equal(t, int64(7), msg.ID)
		assert.False(t, msg.Timestamp.IsZero())
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty message", func(t *testing.T) {
		db, _ := newMockDB(t)

		_, err := NewChatRepository(db).Save(&ChatMessage{Name: "Alice"})
		assert.Equal(t, ErrEmptyChatMessage, err)
	})
}

func TestCallLogRepositorySave(t *testing.T) {
	db, mock := newMockDB(t)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO call_logs`).
		WithArgs("video", sqlmock.AnyArg(), start, start.Add(time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	log, err := NewCallLogRepository(db).Save(&CallLog{
		Type:         VideoCall,
		Participants: []string{"Alice", "Dr. Smith"},
		StartTime:    start,
		EndTime:      start.Add(time.Minute),
	})
	require.Nil(t, err)
	assert.Equal(t, int64(3), log.ID)
	assert.Equal(t, time.Minute, log.Duration())

	_, err = NewCallLogRepository(db).Save(&CallLog{Type: VideoCall})
	assert.Equal(t, ErrIncompleteCallLog, err)
}

func TestQueriesRepository(t *testing.T) {
	queryRowColumns := []string{"id", "from_email", "to_email", "message", "response", "status", "created_at", "updated_at"}

	t.Run("create marks query unread", func(t *testing.T) {
		db, mock := newMockDB(t)
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO queries`).
			WithArgs("p@example.com", "d@example.com", "my results?", "unread").
			WillReturnRows(sqlmock.NewRows(queryRowColumns).
				AddRow("q-1", "p@example.com", "d@example.com", "my results?", nil, "unread", now, now))

		q, err := NewQueriesRepository(db).Create(&Query{From: "p@example.com", To: "d@example.com", Message: "my results?"})
		require.Nil(t, err)
		assert.Equal(t, "q-1", q.ID)
		assert.Equal(t, QueryUnread, q.Status)
		assert.True(t, q.CanView("d@example.com"))
		assert.False(t, q.CanView("other@example.com"))
	})

	t.Run("received filters by status", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectQuery(`FROM queries WHERE to_email = \$1 AND status = \$2`).
			WithArgs("d@example.com", "replied").
			WillReturnRows(sqlmock.NewRows(queryRowColumns))

		qs, err := NewQueriesRepository(db).Received("d@example.com", QueryReplied)
		require.Nil(t, err)
		assert.Empty(t, qs)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("delete reports missing rows", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectExec(`DELETE FROM queries`).
			WithArgs("q-404").
			WillReturnResult(sqlmock.NewResult(0, 0))

		deleted, err := NewQueriesRepository(db).Delete("q-404")
		require.Nil(t, err)
		assert.False(t, deleted)
	})
}

func TestParseQueryStatus(t *testing.T) {
	st, err := ParseQueryStatus("read")
	assert.Nil(t, err)
	assert.Equal(t, QueryRead, st)

	_, err = ParseQueryStatus("archived")
	assert.Equal(t, ErrUnknownQueryStatus, err)
}
