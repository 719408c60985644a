package natsstan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	stan "github.com/nats-io/stan.go"

	"github.com/example/dataservice-read/internal/domain"
)

const (
	defaultQueueGroup     = "dsread-invalidations"
	defaultHandlerTimeout = 5 * time.Second
	defaultAckWait        = 10 * time.Second
)

// Subscriber delivers invalidation messages from a NATS Streaming subject.
type Subscriber struct {
	ClusterID  string
	ClientID   string
	URL        string
	Subject    string
	Durable    string
	QueueGroup string
	Logger     *slog.Logger
}

func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	clientID := s.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("dsread-svc-%d", time.Now().UnixNano())
	}
	group := s.QueueGroup
	if group == "" {
		group = defaultQueueGroup
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sc, err := stan.Connect(s.ClusterID, clientID, stan.NatsURL(s.URL))
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		sc.Close()
	}()
	_, err = sc.QueueSubscribe(s.Subject, group, func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(context.Background(), defaultHandlerTimeout)
		defer cancel()
		if err := handler(hCtx, m.Data); err != nil {
			if !ackOnError(err) {
				// not acked, the message is redelivered
				logger.Warn("invalidation handler failed", "error", err)
				return
			}
			logger.Warn("invalidation dropped", "error", err)
		}
		if err := m.Ack(); err != nil {
			logger.Warn("ack failed", "error", err)
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(defaultAckWait), stan.DeliverAllAvailable())
	return err
}

var _ domain.MessageSubscriber = (*Subscriber)(nil)

// ackOnError reports whether a failed message should still be acked.
// Malformed messages are, since redelivery cannot fix them.
func ackOnError(err error) bool {
	return domain.KindOf(err) == domain.ErrorKindPreconditionFailed
}
