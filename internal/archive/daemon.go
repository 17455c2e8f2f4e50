package archive

import (
	"bytes"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/oncolink/telehealth/internal/eventbus"
)

// QueueGroup lets several archivers share one subject.
const QueueGroup = "archivers"

// Daemon consumes activity from NATS.
type Daemon struct {
	archiver *Archiver
	subject  eventbus.Channel

	nc  *nats.Conn
	sub *nats.Subscription

	errors chan error
	stop   chan struct{}
}

func NewDaemon(natsAddr string, subject eventbus.Channel, archiver *Archiver) (*Daemon, error) {
	nc, err := nats.Connect(natsAddr, nats.NoEcho(), nats.Name("telehealth-archiver"))
	if err != nil {
		return nil, err
	}

	daemon := &Daemon{
		archiver: archiver,
		subject:  subject,
		nc:       nc,
		errors:   make(chan error),
		stop:     make(chan struct{}),
	}

	return daemon, nil
}

// Run blocks until Shutdown is called.
func (d *Daemon) Run() error {
	log.Info().Str("service", "archiver").Str("subject", string(d.subject)).Msg("start archive daemon")

	var err error
	d.sub, err = d.nc.QueueSubscribe(string(d.subject), QueueGroup, d.onMessage)
	if err != nil {
		return err
	}

	for {
		select {
		case err := <-d.errors:
			log.Error().Err(err).Str("service", "archiver").Msg("")
		case <-d.stop:
			return d.drain()
		}
	}
}

func (d *Daemon) Shutdown() {
	close(d.stop)
}

func (d *Daemon) drain() error {
	log.Info().Str("service", "archiver").Msg("stop archive daemon")

	if err := d.sub.Unsubscribe(); err != nil {
		log.Error().Err(err).Str("service", "archiver").Msg("unsubscribe")
	}

	return d.nc.Drain()
}

func (d *Daemon) onMessage(msg *nats.Msg) {
	err := d.handle(msg.Data)
	if err == nil {
		return
	}

	// nobody reads errors once Run has returned
	select {
	case d.errors <- err:
	case <-d.stop:
		log.Error().Err(err).Str("service", "archiver").Msg("")
	}
}

func (d *Daemon) handle(data []byte) error {
	r, err := eventbus.RpcFromReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("archive error: %w, payload: %s", err, string(data))
	}

	return d.archiver.Archive(r)
}
