package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oncolink/telehealth/internal/core"
)

var (
	mockDoctor = &core.User{
		ID:       "0c4038d6-da68-11ec-9d64-0242ac120002",
		Email:    "doctor1@example.com",
		Username: "Dr. Smith",
		Role:     core.RoleDoctor,
	}
	mockPatient = &core.User{
		ID:       "5e0a1f0c-da68-11ec-9d64-0242ac120002",
		Email:    "patient1@example.com",
		Username: "John Doe",
		Role:     core.RolePatient,
	}
)

type MockUserStorer struct {
	Users    []*core.User
	Password string
	UIDs     map[string]string
}

func (s *MockUserStorer) Find(id string) (*core.User, error) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *MockUserStorer) FindByUID(uid string) (*core.User, error) {
	if id, ok := s.UIDs[uid]; ok {
		return s.Find(id)
	}
	return nil, sql.ErrNoRows
}

func (s *MockUserStorer) FindByEmail(email string) (*core.User, error) {
	for _, u := range s.Users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *MockUserStorer) FindByRole(role core.UserRoleName) ([]*core.User, error) {
	users := []*core.User{}
	for _, u := range s.Users {
		if u.Role == role {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *MockUserStorer) Authenticate(email string, password string) (*core.User, error) {
	if password != s.Password {
		return nil, nil
	}
	u, err := s.FindByEmail(email)
	if err != nil {
		return nil, nil
	}
	return u, nil
}

type MockQueriesStorer struct {
	Queries map[string]*core.Query
	nextID  int
}

func NewMockQueriesStorer(queries ...*core.Query) *MockQueriesStorer {
	s := &MockQueriesStorer{Queries: make(map[string]*core.Query)}
	for _, q := range queries {
		s.Queries[q.ID] = q
	}
	return s
}

func (s *MockQueriesStorer) Create(q *core.Query) (*core.Query, error) {
	s.nextID++
	q.ID = fmt.Sprintf("q%d", s.nextID)
	q.Status = core.QueryUnread
	q.CreatedAt = time.Now()
	s.Queries[q.ID] = q
	return q, nil
}

func (s *MockQueriesStorer) Find(id string) (*core.Query, error) {
	q, ok := s.Queries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return q, nil
}

func (s *MockQueriesStorer) Sent(from string) ([]*core.Query, error) {
	list := []*core.Query{}
	for _, q := range s.Queries {
		if q.From == from {
			list = append(list, q)
		}
	}
	return list, nil
}

func (s *MockQueriesStorer) Received(to string, status core.QueryStatus) ([]*core.Query, error) {
	list := []*core.Query{}
	for _, q := range s.Queries {
		if q.To == to && (status == "" || q.Status == status) {
			list = append(list, q)
		}
	}
	return list, nil
}

func (s *MockQueriesStorer) Respond(id string, response string) (*core.Query, error) {
	q, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	q.Response = &response
	q.Status = core.QueryReplied
	return q, nil
}

func (s *MockQueriesStorer) SetStatus(id string, status core.QueryStatus) (*core.Query, error) {
	q, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	q.Status = status
	return q, nil
}

func (s *MockQueriesStorer) Delete(id string) (bool, error) {
	if _, ok := s.Queries[id]; !ok {
		return false, nil
	}
	delete(s.Queries, id)
	return true, nil
}

type MockChatStorer struct {
	Saved []*core.ChatMessage
}

func (s *MockChatStorer) Save(m *core.ChatMessage) (*core.ChatMessage, error) {
	m.ID = int64(len(s.Saved) + 1)
	s.Saved = append(s.Saved, m)
	return m, nil
}

func (s *MockChatStorer) Recent(limit int) ([]*core.ChatMessage, error) {
	if limit <= 0 || limit > len(s.Saved) {
		limit = len(s.Saved)
	}
	return s.Saved[len(s.Saved)-limit:], nil
}

type MockCallStorer struct {
	Saved []*core.CallLog
}

func (s *MockCallStorer) Save(c *core.CallLog) (*core.CallLog, error) {
	c.ID = int64(len(s.Saved) + 1)
	s.Saved = append(s.Saved, c)
	return c, nil
}

// stubAuth logs every request in as the given user.
func stubAuth(u *core.User) AuthHandler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, withUser(r, u))
		})
	}
}

func newTestApp(t *testing.T, as *core.User, queries *MockQueriesStorer) (*App, *MockChatStorer, *MockCallStorer) {
	t.Helper()

	chats := &MockChatStorer{}
	calls := &MockCallStorer{}
	if queries == nil {
		queries = NewMockQueriesStorer()
	}

	options := AppOptions{
		Env:           core.TestEnv,
		SessionSecret: "test-secret",
		Users: &MockUserStorer{
			Users:    []*core.User{mockDoctor, mockPatient},
			Password: "doctor123",
			UIDs:     map[string]string{"firebase-uid": mockPatient.ID},
		},
		Chats:   chats,
		Calls:   calls,
		Queries: queries,
	}
	if as != nil {
		options.AuthHandler = stubAuth(as)
	}

	return NewApp(options), chats, calls
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NotNil(t, rec)

	return rec
}
