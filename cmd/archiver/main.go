package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/oncolink/telehealth/internal/archive"
	"github.com/oncolink/telehealth/internal/config"
	"github.com/oncolink/telehealth/internal/core"
	"github.com/oncolink/telehealth/internal/eventbus"
	"github.com/oncolink/telehealth/internal/ws"
)

func main() {
	app := &cli.App{
		Name:        "telehealth-archiver",
		Usage:       "Persists chat and call activity",
		Description: "",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a config file (yaml, toml or json)",
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "either 'redis' or 'nats', overrides eventbus.driver",
			},
		},
		Action: start,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}

func start(c *cli.Context) error {
	conf, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if driver := c.String("driver"); driver != "" {
		conf.Eventbus.Driver = config.EventbusDriver(driver)
		if err := conf.Validate(); err != nil {
			return err
		}
	}

	ws.InitLogger(conf.App.Env, conf.Log)

	db, err := sqlx.Connect("pgx", conf.Postgres.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	archiver := archive.NewArchiver(core.NewChatRepository(db), core.NewCallLogRepository(db))

	switch conf.Eventbus.Driver {
	case config.RedisDriver:
		return runRedis(conf, archiver)
	case config.NatsDriver:
		return runNats(conf, archiver)
	default:
		return config.ErrUnknownDriver
	}
}

func runRedis(conf *config.Config, archiver *archive.Archiver) error {
	rdb := redis.NewClient(&redis.Options{
		Addr: conf.Redis.Addr,
		DB:   conf.Redis.DB,
	})
	defer rdb.Close()

	router, err := eventbus.NewRouter(eventbus.RedisPubSub(rdb, eventbus.Channel(conf.Redis.Channel)))
	if err != nil {
		return err
	}
	router.OnChatMessage(archiver.SaveChatMessage)
	router.OnCallLog(archiver.SaveCallLog)

	<-router.Start()
	log.Info().Str("service", "archiver").Str("channel", conf.Redis.Channel).Msg("archiver started")

	waitSignal()

	<-router.Stop()
	log.Info().Str("service", "archiver").Msg("archiver stopped")
	return nil
}

func runNats(conf *config.Config, archiver *archive.Archiver) error {
	daemon, err := archive.NewDaemon(conf.Nats.URL, eventbus.Channel(conf.Nats.Subject), archiver)
	if err != nil {
		return err
	}

	go func() {
		waitSignal()
		daemon.Shutdown()
	}()

	return daemon.Run()
}

func waitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
}
