package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/middleware"
)

// Event types published after successful commits.
const (
	EventEnrollmentCreated       = "enrollment.created"
	EventExamRegistrationCreated = "exam_registration.created"
	EventExamOutcomeRecorded     = "exam_registration.outcome_recorded"
	EventRegularitiesImported    = "regularity.imported"
	EventEquivalenceGranted      = "equivalence.granted"
)

// Event is the envelope published to the redis channel and the NATS subject.
type Event struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Data          interface{} `json:"data"`
}

// EventPublisher fans academic events out to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

type eventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewEventPublisher publishes to "<base>:events" on redis and "<base>.events.<type>" on NATS.
// Either transport may be nil.
func NewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EventPublisher {
	channelBase = strings.TrimSpace(channelBase)
	publisher := &eventPublisher{
		redis:  redisClient,
		nats:   natsConn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
		now:    time.Now,
	}
	if channelBase != "" {
		publisher.redisChannel = channelBase + ":events"
		publisher.natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}
	return publisher
}

func (p *eventPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	event := Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		OccurredAt:    p.now().UTC(),
		Data:          data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject+"."+eventType, payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// publishQuietly publishes an event and only logs failures; commits never fail on fan-out.
func publishQuietly(ctx context.Context, publisher EventPublisher, logger zerolog.Logger, eventType string, data interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, eventType, data); err != nil {
		l := middleware.LoggerWithCorrelation(ctx, logger)
		l.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
