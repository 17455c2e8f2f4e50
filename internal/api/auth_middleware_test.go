package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncolink/telehealth/internal/core"
)

type MockVerifier struct {
	UID string
	Err error
}

func (v *MockVerifier) Verify(ctx context.Context, token string) (string, error) {
	return v.UID, v.Err
}

func helloRouter(auth *Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.Middleware())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		u, err := userFromRequest(r)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(u.Email))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}

	sqlxDb := sqlx.NewDb(db, "sqlmock")
	defer sqlxDb.Close()

	repo := core.NewUserRepository(sqlxDb)
	store := sessions.NewCookieStore([]byte("test-secret"))

	t.Run("default middleware with given AuthFailFunc", func(t *testing.T) {
		auth := NewAuthenticator(repo, store)
		auth.AuthFailFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			w.WriteHeader(http.StatusBadRequest)
		}

		ts := httptest.NewServer(helloRouter(auth))
		defer ts.Close()

		req, err := http.NewRequest("GET", ts.URL, nil)
		assert.Nil(t, err)

		resp, err := http.DefaultClient.Do(req)
		assert.Nil(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("default middleware without AuthFailFunc", func(t *testing.T) {
		auth := NewAuthenticator(repo, store)

		ts := httptest.NewServer(helloRouter(auth))
		defer ts.Close()

		req, err := http.NewRequest("GET", ts.URL, nil)
		assert.Nil(t, err)

		resp, err := http.DefaultClient.Do(req)
		assert.Nil(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("stub handler", func(t *testing.T) {
		auth := NewAuthenticator(repo, store)
		auth.StubHandler = func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			})
		}

		ts := httptest.NewServer(helloRouter(auth))
		defer ts.Close()

		req, err := http.NewRequest("GET", ts.URL, nil)
		assert.Nil(t, err)

		resp, err := http.DefaultClient.Do(req)
		assert.Nil(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	})
}

func TestAuthMiddlewareXAuth(t *testing.T) {
	users := &MockUserStorer{
		Users: []*core.User{mockPatient},
		UIDs:  map[string]string{"firebase-uid": mockPatient.ID},
	}
	store := sessions.NewCookieStore([]byte("test-secret"))

	t.Run("verified token", func(t *testing.T) {
		auth := NewAuthenticator(users, store)
		auth.Verifier = &MockVerifier{UID: "firebase-uid"}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Auth", "token")
		rec := httptest.NewRecorder()
		helloRouter(auth).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, mockPatient.Email, rec.Body.String())
	})

	t.Run("rejected token", func(t *testing.T) {
		auth := NewAuthenticator(users, store)
		auth.Verifier = &MockVerifier{Err: errors.New("token expired")}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Auth", "token")
		rec := httptest.NewRecorder()
		helloRouter(auth).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		auth := NewAuthenticator(users, store)
		auth.Verifier = &MockVerifier{UID: "someone-else"}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Auth", "token")
		rec := httptest.NewRecorder()
		helloRouter(auth).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLoginCookieAuthenticates(t *testing.T) {
	app, _, _ := newTestApp(t, nil, nil)
	router := app.Router()

	rec := doRequest(t, router, http.MethodPost, "/login", `{"email":"doctor1@example.com","password":"doctor123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"user":{"id":"`+mockDoctor.ID+`","email":"doctor1@example.com","username":"Dr. Smith","role":"doctor","created_at":"0001-01-01T00:00:00Z","updated_at":"0001-01-01T00:00:00Z"}}`, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)

	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), mockDoctor.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app, _, _ := newTestApp(t, nil, nil)
	router := app.Router()

	rec := doRequest(t, router, http.MethodPost, "/login", `{"email":"doctor1@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/login", `{"email":"doctor1@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutExpiresCookie(t *testing.T) {
	app, _, _ := newTestApp(t, nil, nil)

	rec := doRequest(t, app.Router(), http.MethodDelete, "/login", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.True(t, cookies[0].MaxAge < 0)
}
