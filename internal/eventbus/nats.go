package eventbus

import (
	"github.com/nats-io/nats.go"
)

// NatsPublisher publishes activity on a NATS subject so several archivers
// can share it through a queue group.
type NatsPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNatsPublisher(url string, subject Channel) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, nats.NoEcho(), nats.Name("telehealth-relay"))
	if err != nil {
		return nil, err
	}
	if subject == "" {
		subject = ActivityChannel
	}

	return &NatsPublisher{nc: nc, subject: string(subject)}, nil
}

func (p *NatsPublisher) Publish(rpc Rpc) error {
	msg, err := rpc.ToJSON()
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, msg)
}

func (p *NatsPublisher) Close() error {
	return p.nc.Drain()
}
