package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/jmoiron/sqlx"
	"github.com/pion/webrtc/v3"

	"github.com/oncolink/telehealth/internal/core"
)

const sessionMaxAge = 7 * 24 * 60 * 60

// AppOptions is options of the application
type AppOptions struct {
	DB               *sqlx.DB
	Env              core.Environment
	SessionSecret    string
	FirebaseAuthAddr string
	ICEServers       []webrtc.ICEServer

	// Storers default to the PostgreSQL repositories over DB.
	Users   core.UserStorer
	Chats   core.ChatDBStorer
	Calls   core.CallLogDBStorer
	Queries core.QueriesDBStorer

	// AuthHandler replaces the cookie/X-Auth middleware, for tests.
	AuthHandler AuthHandler

	router      *chi.Mux
	cookieStore *sessions.CookieStore
	auth        *Authenticator
}

// App is application for API
type App struct {
	AppOptions
}

// NewApp creates a new API application
func NewApp(options AppOptions) *App {
	options.router = chi.NewRouter()

	if options.Users == nil {
		options.Users = core.NewUserRepository(options.DB)
	}
	if options.Chats == nil {
		options.Chats = core.NewChatRepository(options.DB)
	}
	if options.Calls == nil {
		options.Calls = core.NewCallLogRepository(options.DB)
	}
	if options.Queries == nil {
		options.Queries = core.NewQueriesRepository(options.DB)
	}

	options.cookieStore = sessions.NewCookieStore([]byte(options.SessionSecret))
	options.cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   options.Env.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	options.auth = NewAuthenticator(options.Users, options.cookieStore)
	options.auth.StubHandler = options.AuthHandler
	options.auth.AuthFailFunc = authFailedFunc
	if options.FirebaseAuthAddr != "" {
		options.auth.Verifier = &FirebaseVerifier{Addr: options.FirebaseAuthAddr}
	}

	return &App{
		options,
	}
}

// Router is function for construct http router
func (app *App) Router() http.Handler {
	r := app.router

	r.Post("/login", LoginHandler(app.Users, app.cookieStore))
	r.Delete("/login", LogoutHandler(app.cookieStore))
	r.Get("/users/doctors", UsersByRoleHandler(app.Users, core.RoleDoctor))
	r.Get("/ice-servers", ICEServersHandler(app.ICEServers))

	r.Post("/chat", ChatCreateHandler(app.Chats))
	r.Get("/chat", ChatIndexHandler(app.Chats))
	r.Post("/call", CallLogCreateHandler(app.Calls))

	r.Group(func(r chi.Router) {
		r.Use(app.auth.Middleware())

		r.Get("/users/me", CurrentUserHandler())
		r.With(RequireRole(core.RoleDoctor)).Get("/users/patients", UsersByRoleHandler(app.Users, core.RolePatient))

		r.Route("/queries", NewQueriesHandler(app.Queries, app.Users).Routes)
	})

	return r
}

func authFailedFunc(w http.ResponseWriter, r *http.Request, err error) {
	renderError(w, http.StatusUnauthorized, "unauthorized")
}
