package ws

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/isqad/melody"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/oncolink/telehealth/internal/config"
	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/signaling"
)

const (
	shutdownTimeout = 20 * time.Second
	// melody reads at most 512 bytes per frame by default, less than an SDP offer.
	defaultMaxMessageSize = 64 << 10
)

// WsAppOptions is options of the application
type WsAppOptions struct {
	Env     core.Environment
	Address string
	WS      config.WSConfig

	Commutator *signaling.Commutator
	// API is mounted under /api when set.
	API http.Handler
	// OnShutdown runs after the HTTP server has stopped accepting requests.
	OnShutdown func()

	websocket *melody.Melody
	sessions  *sync.WaitGroup
}

// WsApp serves the signaling websocket next to the REST API.
type WsApp struct {
	WsAppOptions
}

func New(options WsAppOptions) *WsApp {
	options.websocket = melody.New()
	options.sessions = &sync.WaitGroup{}

	options.websocket.Config.MaxMessageSize = defaultMaxMessageSize
	if options.WS.MaxMessageSize > 0 {
		options.websocket.Config.MaxMessageSize = options.WS.MaxMessageSize
	}
	if options.WS.MessageBufferSize > 0 {
		options.websocket.Config.MessageBufferSize = options.WS.MessageBufferSize
	}
	// melody accepts any origin; nil restores the same-origin check of the upgrader.
	if options.WS.CheckOrigin {
		options.websocket.Upgrader.CheckOrigin = nil
	}

	app := &WsApp{
		options,
	}
	return app
}

func (app *WsApp) Start() error {
	quit := make(chan os.Signal, 1)
	done := make(chan struct{}, 1)

	router := app.Router()

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	server := &http.Server{
		Addr:              app.Address,
		Handler:           router,
		ReadHeaderTimeout: 1 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Warn().Msg("received signal to terminate the server")

		app.shutdown(shutdownTimeout)

		log.Info().Msg("all services are stopped")
		close(done)
	})

	// Shutdown the HTTP server
	go func() {
		<-quit
		log.Warn().Msg("the server is going shutting down")

		waitIdleConnCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(waitIdleConnCtx); err != nil {
			log.Fatal().Err(err).Msg("can't gracefully shutdown the server")
		}
	}()

	log.Info().Str("address", app.Address).Str("env", string(app.Env)).Msg("server started")

	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server has been closed immediatelly")
	}

	<-done
	log.Info().Msg("server stopped")

	return nil
}

// shutdown closes every websocket session and waits until their disconnects
// have been handled before running OnShutdown.
func (app *WsApp) shutdown(timeout time.Duration) {
	if err := app.websocket.Close(); err != nil {
		log.Error().Err(err).Str("service", "ws").Msg("can't close websocket sessions")
	}

	drained := make(chan struct{})
	go func() {
		app.sessions.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(timeout):
		log.Warn().Str("service", "ws").Msg("websocket sessions are still closing")
	}

	if app.OnShutdown != nil {
		app.OnShutdown()
	}
}

// InitLogger points the global logger at the console, and at a rotated file
// when one is configured.
func InitLogger(env core.Environment, conf config.LogConfig) {
	var out io.Writer = zerolog.NewConsoleWriter()

	if conf.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   conf.File,
			MaxSize:    conf.MaxSizeMB,
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.MaxAgeDays,
			Compress:   true,
		})
	}
	log.Logger = log.Output(out)

	level := zerolog.InfoLevel

	if env.IsDevelopment() {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)
}

// Router is function for construct http router
func (app *WsApp) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	connect := ConnectHandler(app.Commutator)
	disconnect := DisconnectHandler(app.Commutator)

	app.websocket.HandleConnect(func(s *melody.Session) {
		app.sessions.Add(1)
		connect(s)
	})
	app.websocket.HandleDisconnect(func(s *melody.Session) {
		defer app.sessions.Done()
		disconnect(s)
	})
	app.websocket.HandleMessage(HandleMessage(app.Commutator))
	app.websocket.HandleError(func(s *melody.Session, err error) {
		log.Debug().Err(err).Str("service", "ws").Msg("error in websocket session")
	})

	r.Get("/ws", WsHandler(app.websocket))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	if app.API != nil {
		r.Mount("/api", app.API)
	}

	return r
}
