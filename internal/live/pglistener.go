package live

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Publisher receives change notifications by collection name.
type Publisher interface {
	Publish(collection string)
}

type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// PGListener forwards PostgreSQL NOTIFY payloads on a channel to a Publisher.
// It lets writes made by other processes reach this process's subscribers.
type PGListener struct {
	dial       func(ctx context.Context) (listenConn, error)
	channel    string
	pub        Publisher
	logger     zerolog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewPGListener creates a listener. dial must return a dedicated connection.
func NewPGListener(dial func(ctx context.Context) (*pgx.Conn, error), channel string, pub Publisher, logger zerolog.Logger) *PGListener {
	return &PGListener{
		dial: func(ctx context.Context) (listenConn, error) {
			conn, err := dial(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		channel:    channel,
		pub:        pub,
		logger:     logger.With().Str("component", "pglistener").Str("channel", channel).Logger(),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff.
// It always returns ctx.Err().
func (l *PGListener) Run(ctx context.Context) error {
	backoff := l.minBackoff
	for {
		received, err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received {
			backoff = l.minBackoff
		}
		l.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("listener disconnected")

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff = min(backoff*2, l.maxBackoff)
	}
}

// listen runs one connection until it fails. received reports whether any
// notification arrived, which resets the backoff.
func (l *PGListener) listen(ctx context.Context) (received bool, err error) {
	conn, err := l.dial(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return false, err
	}
	l.logger.Info().Msg("listening for collection changes")

	// Changes made while disconnected were never delivered.
	l.pub.Publish(allCollections)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return received, ctx.Err()
			}
			return received, err
		}
		received = true
		if n.Payload == "" {
			continue
		}
		l.pub.Publish(n.Payload)
	}
}
