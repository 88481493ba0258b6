package broker

import (
	"fmt"
	"log"
	"time"

	"tasknotes/tasknotes/config"

	"github.com/nats-io/nats.go"
)

// Producer publishes event payloads to broker subjects.
type Producer interface {
	Publish(subject string, data []byte) error
	Close()
}

type natsProducer struct {
	conn *nats.Conn
}

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(cfg config.Config, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NatsURL, err)
	}
	return conn, nil
}

func InitProducer(cfg config.Config) (Producer, error) {
	conn, err := Connect(cfg, "tasknotes-producer")
	if err != nil {
		return nil, err
	}
	log.Println("NATS producer initialized")
	return &natsProducer{conn: conn}, nil
}

func (p *natsProducer) Publish(subject string, data []byte) error {
	if p.conn == nil {
		return nats.ErrConnectionClosed
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (p *natsProducer) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}
