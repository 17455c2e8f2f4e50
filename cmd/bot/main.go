package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/oncolink/telehealth/internal/bot"
)

func main() {
	app := &cli.App{
		Name:        "telehealth-bot",
		Usage:       "Signaling probe for the telehealth relay",
		Description: "Joins the video room and the text chat and answers every offer it gets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Value: "localhost:3001",
				Usage: "main host of server",
			},
			&cli.BoolFlag{
				Name:  "secure",
				Usage: "use https and wss",
			},
			&cli.StringFlag{
				Name:  "name",
				Value: "bot",
				Usage: "username shown to other participants",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "email for authenticate",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "password for authenticate",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log every received frame",
			},
		},
		Action: startBot,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Printf("%v\n", err)
	}
}

func startBot(c *cli.Context) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	b, err := bot.New(bot.Options{
		Host:     c.String("host"),
		Secure:   c.Bool("secure"),
		Email:    c.String("email"),
		Password: c.String("password"),
		Username: c.String("name"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return b.Start(ctx)
}
