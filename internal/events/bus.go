package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/obs"
)

// EventStore defines the persistence operation required by the event bus.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error)
}

// Notifier reacts to published events (task enqueue, stream publish).
type Notifier interface {
	Notify(ctx context.Context, event dbgen.DomainEvent) error
}

// Named is implemented by notifiers that label their metrics.
type Named interface {
	Name() string
}

// Bus persists domain events and fans them out to downstream notifiers.
//
// Callers that change state inside a transaction use Record with the transaction's
// queries and Publish once the transaction has committed, so a notifier never sees an
// event whose business write was rolled back.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
}

// Record persists an event through store without publishing it.
func Record(ctx context.Context, store EventStore, topic string, aggregateID pgtype.UUID, payload any) (dbgen.DomainEvent, error) {
	if store == nil {
		return dbgen.DomainEvent{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return dbgen.DomainEvent{}, errors.New("events: topic is required")
	}
	if !aggregateID.Valid {
		return dbgen.DomainEvent{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return dbgen.DomainEvent{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := store.InsertDomainEvent(ctx, dbgen.InsertDomainEventParams{
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     encoded,
	})
	if err != nil {
		return dbgen.DomainEvent{}, fmt.Errorf("events: persist event: %w", err)
	}
	return ev, nil
}

// Publish hands a recorded event to every notifier. Errors are joined; one failing
// notifier does not stop the others.
func (b *Bus) Publish(ctx context.Context, ev dbgen.DomainEvent) error {
	if b == nil {
		return nil
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		err := notifier.Notify(ctx, ev)
		obs.RecordEventPublished(ev.Topic, notifierName(notifier), err)
		if err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier %s: %w", notifierName(notifier), err))
		}
	}
	return joined
}

// Emit records the event through the bus store and publishes it. Use it only outside a
// transaction.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) (dbgen.DomainEvent, error) {
	if b == nil || b.Store == nil {
		return dbgen.DomainEvent{}, errors.New("events: store not configured")
	}
	ev, err := Record(ctx, b.Store, topic, aggregateID, payload)
	if err != nil {
		return dbgen.DomainEvent{}, err
	}
	return ev, b.Publish(ctx, ev)
}

// PublishLogged publishes ev and logs, rather than returns, notifier failures. The
// business write has already committed at this point.
func (b *Bus) PublishLogged(ctx context.Context, ev dbgen.DomainEvent) {
	if err := b.Publish(ctx, ev); err != nil {
		obs.Logger(ctx).Warn().Err(err).Str("topic", ev.Topic).Msg("event_publish_failed")
	}
}

func notifierName(n Notifier) string {
	if named, ok := n.(Named); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", n)
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case json.RawMessage:
		return validJSON(v)
	case []byte:
		return validJSON(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return []byte("{}"), nil
		}
		return validJSON([]byte(v))
	default:
		return json.Marshal(v)
	}
}

func validJSON(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(data) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), data...), nil
}
