package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/core"
)

type ctxKey string

const (
	// UserContextKey is used for extract the current user from request context
	UserContextKey ctxKey = "current_user"

	sessionName      = "telehealth_session"
	sessionUserIDKey = "user_id"
)

// AuthFailFunc is function that is called when authentication failed
type AuthFailFunc func(w http.ResponseWriter, r *http.Request, err error)

// AuthHandler is optional handler for mocking in tests
type AuthHandler func(next http.Handler) http.Handler

var (
	xAuth                = http.CanonicalHeaderKey("X-Auth")
	ErrEmptyAuthToken    = errors.New("empty auth token")
	ErrNoUserInContext   = errors.New("can't get user from request context")
	errVerifierUndefined = errors.New("token verifier is not configured")
)

// Authenticator accepts either a login cookie or an X-Auth token.
type Authenticator struct {
	AuthFailFunc AuthFailFunc
	StubHandler  AuthHandler
	Verifier     TokenVerifier

	userRepository core.UserStorer
	cookieStore    sessions.Store
}

func NewAuthenticator(userRepository core.UserStorer, cookieStore sessions.Store) *Authenticator {
	return &Authenticator{
		userRepository: userRepository,
		cookieStore:    cookieStore,
	}
}

// Middleware puts the authenticated user into the request context.
func (m *Authenticator) Middleware() AuthHandler {
	if m.StubHandler != nil {
		return m.StubHandler
	}

	return m.defaultMiddleware()
}

func (m *Authenticator) defaultMiddleware() AuthHandler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u := m.userFromCookie(r); u != nil {
				next.ServeHTTP(w, withUser(r, u))
				return
			}

			token := r.Header.Get(xAuth)
			if token == "" {
				m.authFailed(w, r, ErrEmptyAuthToken)
				return
			}
			if m.Verifier == nil {
				m.authFailed(w, r, errVerifierUndefined)
				return
			}

			uid, err := m.Verifier.Verify(r.Context(), token)
			if err != nil {
				m.authFailed(w, r, err)
				return
			}

			u, err := m.userRepository.FindByUID(uid)
			if err != nil {
				m.authFailed(w, r, err)
				return
			}

			next.ServeHTTP(w, withUser(r, u))
		})
	}
}

func (m *Authenticator) userFromCookie(r *http.Request) *core.User {
	session, err := m.cookieStore.Get(r, sessionName)
	if err != nil {
		log.Debug().Err(err).Str("service", "api").Msg("can't decode session cookie")
		return nil
	}

	userID, ok := session.Values[sessionUserIDKey].(string)
	if !ok || userID == "" {
		return nil
	}

	u, err := m.userRepository.Find(userID)
	if err != nil {
		log.Debug().Err(err).Str("service", "api").Str("userID", userID).Msg("session user is gone")
		return nil
	}

	return u
}

func (m *Authenticator) authFailed(w http.ResponseWriter, r *http.Request, err error) {
	log.Debug().Err(err).Str("service", "api").Str("path", r.URL.Path).Msg("authentication failed")

	if m.AuthFailFunc != nil {
		m.AuthFailFunc(w, r, err)
	} else {
		w.WriteHeader(http.StatusUnauthorized)
	}
}

// RequireRole rejects authenticated users of any other role with 403.
func RequireRole(role core.UserRoleName) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := userFromRequest(r)
			if err != nil {
				renderError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if u.Role != role {
				renderError(w, http.StatusForbidden, "not authorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withUser(r *http.Request, u *core.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, u))
}

// userFromRequest извлекает User из контекста запроса
func userFromRequest(r *http.Request) (*core.User, error) {
	user, ok := r.Context().Value(UserContextKey).(*core.User)
	if !ok {
		return nil, ErrNoUserInContext
	}

	return user, nil
}
