package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Access event types.
const (
	TypeDashboardViewed    = "dashboard.viewed"
	TypeDashboardRefreshed = "dashboard.refreshed"
	TypeTeacherLookup      = "dashboard.teacher_lookup"
	TypeGroupViewed        = "dashboard.group_viewed"
	TypeStudentViewed      = "dashboard.student_viewed"
)

// AccessEvent records who read which part of the dashboard.
type AccessEvent struct {
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	UserID        uint64    `json:"user_id"`
	Role          string    `json:"role"`
	TargetID      uint64    `json:"target_id,omitempty"`
	CacheHit      bool      `json:"cache_hit,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers access events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event AccessEvent) error
}

// Broadcaster fans access events out to a Redis pub/sub channel and a NATS
// subject. Either transport may be absent.
type Broadcaster struct {
	source       string
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	now          func() time.Time
	logger       zerolog.Logger
}

// NewBroadcaster builds a broadcaster for the configured transports.
func NewBroadcaster(source string, redisClient *redis.Client, redisChannel string, natsConn *nats.Conn, natsSubject string, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		source:       source,
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		now:          time.Now,
		logger:       logger.With().Str("component", "access_events").Logger(),
	}
}

// Enabled reports whether at least one transport is configured.
func (b *Broadcaster) Enabled() bool {
	if b == nil {
		return false
	}
	return (b.redis != nil && b.redisChannel != "") || (b.nats != nil && b.natsSubject != "")
}

// Publish stamps the event and sends it on every configured transport.
func (b *Broadcaster) Publish(ctx context.Context, event AccessEvent) error {
	if !b.Enabled() {
		return nil
	}

	event.Source = b.source
	if event.OccurredAt.IsZero() {
		event.OccurredAt = b.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode access event: %w", err)
	}

	// Transports are independent; an outage on one does not hold back the other.
	var errs []error
	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish access event to redis: %w", err))
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			errs = append(errs, fmt.Errorf("publish access event to nats: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	b.logger.Debug().Str("type", event.Type).Uint64("user_id", event.UserID).Msg("access event published")
	return nil
}

// Connect dials the NATS server used for access events.
func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return conn, nil
}
