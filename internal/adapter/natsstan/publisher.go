package natsstan

import (
	"context"
	"encoding/json"

	stan "github.com/nats-io/stan.go"

	"github.com/example/dataservice-read/internal/domain"
)

// Publisher announces cache invalidations on a NATS Streaming subject.
type Publisher struct {
	Conn    stan.Conn
	Subject string
}

var _ domain.InvalidationPublisher = (*Publisher)(nil)

// Connect opens a streaming connection for a Publisher.
func Connect(clusterID, clientID, url, subject string) (*Publisher, error) {
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(url))
	if err != nil {
		return nil, err
	}
	return &Publisher{Conn: sc, Subject: subject}, nil
}

// PublishInvalidation publishes inv and waits for the server ack or ctx.
func (p *Publisher) PublishInvalidation(ctx context.Context, inv domain.Invalidation) error {
	b, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	acked := make(chan error, 1)
	_, err = p.Conn.PublishAsync(p.Subject, b, func(_ string, err error) {
		acked <- err
	})
	if err != nil {
		return err
	}
	select {
	case err := <-acked:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the underlying connection.
func (p *Publisher) Close() error {
	return p.Conn.Close()
}
