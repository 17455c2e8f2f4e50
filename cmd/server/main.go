package main

import (
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/oncolink/telehealth/internal/api"
	"github.com/oncolink/telehealth/internal/config"
	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/eventbus"
	"github.com/oncolink/telehealth/internal/signaling"
	"github.com/oncolink/telehealth/internal/ws"
)

func main() {
	app := &cli.App{
		Name:        "telehealth-server",
		Usage:       "Signaling relay and REST API",
		Description: "",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment: either 'development' or 'production', overrides app.env",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "listen IP and port, example: ':8080' for listen on 0.0.0.0:8080, overrides app.address",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a config file (yaml, toml or json)",
			},
		},
		Action: startServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}

func startServer(c *cli.Context) error {
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if env := c.String("env"); env != "" {
		conf.App.Env, err = core.ParseEnvironment(env)
		if err != nil {
			return err
		}
	}
	if address := c.String("address"); address != "" {
		conf.App.Address = address
	}

	ws.InitLogger(conf.App.Env, conf.Log)

	db, err := sqlx.Connect("pgx", conf.Postgres.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	publisher, closePublisher, err := newPublisher(conf)
	if err != nil {
		return err
	}

	queue := eventbus.NewQueue(publisher, 0)
	go queue.Run()

	commutator := signaling.NewCommutator(signaling.Options{EventsPublisher: queue})

	apiApp := api.NewApp(api.AppOptions{
		DB:               db,
		Env:              conf.App.Env,
		SessionSecret:    conf.App.SessionSecret,
		FirebaseAuthAddr: conf.FirebaseAuthService.Addr,
		ICEServers:       conf.ICEServers(),
	})

	wsApp := ws.New(ws.WsAppOptions{
		Env:        conf.App.Env,
		Address:    conf.App.Address,
		WS:         conf.WS,
		Commutator: commutator,
		API:        apiApp.Router(),
		OnShutdown: func() {
			queue.Close()
			closePublisher()
		},
	})

	return wsApp.Start()
}

func newPublisher(conf *config.Config) (eventbus.Publisher, func(), error) {
	switch conf.Eventbus.Driver {
	case config.RedisDriver:
		rdb := redis.NewClient(&redis.Options{
			Addr: conf.Redis.Addr,
			DB:   conf.Redis.DB,
		})
		closeFunc := func() {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Str("service", "eventbus").Msg("close redis client")
			}
		}
		return eventbus.RedisPubSub(rdb, eventbus.Channel(conf.Redis.Channel)), closeFunc, nil
	case config.NatsDriver:
		p, err := eventbus.NewNatsPublisher(conf.Nats.URL, eventbus.Channel(conf.Nats.Subject))
		if err != nil {
			return nil, nil, err
		}
		closeFunc := func() {
			if err := p.Close(); err != nil {
				log.Error().Err(err).Str("service", "eventbus").Msg("drain nats connection")
			}
		}
		return p, closeFunc, nil
	default:
		return eventbus.NoopPublisher{}, func() {}, nil
	}
}
