package logsource

import (
	"context"
	"strings"
	"time"

	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/logger"
	"github.com/nats-io/nats.go"
)

// NATSSource reads log lines relayed to a NATS subject by a log drain.
// Each message is one log line; Fetch returns everything queued since the
// previous call.
type NATSSource struct {
	conn         *nats.Conn
	sub          *nats.Subscription
	drainTimeout time.Duration
	log          logger.Logger
}

func NewNATSSource(url, subject string, drainTimeout time.Duration, log logger.Logger) (*NATSSource, error) {
	errFactory := errors.New()
	if log == nil {
		log = logger.Nop()
	}

	conn, err := nats.Connect(url,
		nats.Name("pgsampler"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, errFactory.Wrap(ErrConnect, err)
	}

	sub, err := conn.SubscribeSync(subject)
	if err != nil {
		conn.Close()
		return nil, errFactory.Wrap(ErrConnect, err)
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return nil, errFactory.Wrap(ErrConnect, err)
	}

	log.Info().
		Str("url", url).
		Str("subject", subject).
		Msg("Subscribed to log relay")

	return &NATSSource{
		conn:         conn,
		sub:          sub,
		drainTimeout: drainTimeout,
		log:          log,
	}, nil
}

// Fetch drains queued messages for at most the drain timeout. Messages still
// queued when the deadline passes are returned by the next call.
func (n *NATSSource) Fetch(ctx context.Context) (string, error) {
	errFactory := errors.New()

	if !n.conn.IsConnected() && !n.conn.IsReconnecting() {
		return "", errFactory.Wrap(ErrFetch, nats.ErrConnectionClosed)
	}

	var sb strings.Builder
	deadline := time.Now().Add(n.drainTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return "", errFactory.Wrap(ErrFetch, err)
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			break
		}

		msg, err := n.sub.NextMsg(wait)
		if errors.Is(err, nats.ErrTimeout) {
			break
		}
		if errors.Is(err, nats.ErrSlowConsumer) {
			n.log.Warn().Err(err).Msg("Log relay outpaced the subscription, messages were dropped")
			break
		}
		if err != nil {
			return "", errFactory.Wrap(ErrFetch, err)
		}

		sb.Write(msg.Data)
		if len(msg.Data) == 0 || msg.Data[len(msg.Data)-1] != '\n' {
			sb.WriteByte('\n')
		}
	}

	return sb.String(), nil
}

func (n *NATSSource) Close() error {
	if err := n.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		n.log.Debug().Err(err).Msg("Failed to unsubscribe")
	}
	n.conn.Close()
	return nil
}
