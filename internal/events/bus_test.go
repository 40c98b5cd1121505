package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/resilience"
)

type stubStore struct {
	lastParams dbgen.InsertDomainEventParams
	calls      int
	err        error
}

func (s *stubStore) InsertDomainEvent(_ context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error) {
	s.calls++
	s.lastParams = arg
	if s.err != nil {
		return dbgen.DomainEvent{}, s.err
	}
	return dbgen.DomainEvent{
		ID:          toUUID(uuid.New()),
		Topic:       arg.Topic,
		AggregateID: arg.AggregateID,
		Payload:     arg.Payload,
		OccurredAt:  pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}, nil
}

type captureNotifier struct {
	events []dbgen.DomainEvent
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event dbgen.DomainEvent) error {
	c.events = append(c.events, event)
	return c.err
}

type captureWriter struct {
	msgs []kafka.Message
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error { return nil }

type captureEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (c *captureEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	if c.err != nil {
		return nil, c.err
	}
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func toUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func TestEmitPersistsThenNotifies(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	aggregate := uuid.New()
	event, err := bus.Emit(context.Background(), events.TopicOrderPlaced, toUUID(aggregate), map[string]any{"orderId": "123"})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderPlaced, store.lastParams.Topic)
	require.JSONEq(t, `{"orderId":"123"}`, string(store.lastParams.Payload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)
}

func TestRecordValidatesInput(t *testing.T) {
	store := &stubStore{}
	ctx := context.Background()

	_, err := events.Record(ctx, store, " ", toUUID(uuid.New()), nil)
	require.Error(t, err)
	_, err = events.Record(ctx, store, events.TopicOrderPlaced, pgtype.UUID{}, nil)
	require.Error(t, err)
	_, err = events.Record(ctx, store, events.TopicOrderPlaced, toUUID(uuid.New()), "not json")
	require.Error(t, err)
	require.Zero(t, store.calls)

	ev, err := events.Record(ctx, store, events.TopicOrderPlaced, toUUID(uuid.New()), nil)
	require.NoError(t, err)
	require.Equal(t, "{}", string(ev.Payload))
}

func TestEmitStopsWhenStoreFails(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	_, err := bus.Emit(context.Background(), events.TopicUserSignedUp, toUUID(uuid.New()), nil)
	require.Error(t, err)
	require.Empty(t, notifier.events)
}

func TestPublishJoinsNotifierErrors(t *testing.T) {
	failing := &captureNotifier{err: errors.New("broker unavailable")}
	healthy := &captureNotifier{}
	bus := events.Bus{Notifiers: []events.Notifier{failing, nil, healthy}}

	err := bus.Publish(context.Background(), dbgen.DomainEvent{Topic: events.TopicOrderPlaced})
	require.ErrorContains(t, err, "broker unavailable")
	require.Len(t, healthy.events, 1)
}

func TestKafkaNotifierKeysByAggregate(t *testing.T) {
	writer := &captureWriter{}
	notifier := &events.KafkaNotifier{Writer: writer}
	aggregate := uuid.New()
	ev := dbgen.DomainEvent{
		ID:          toUUID(uuid.New()),
		Topic:       events.TopicOrderStatusChanged,
		AggregateID: toUUID(aggregate),
		Payload:     []byte(`{"from":"received","to":"preparing"}`),
		OccurredAt:  pgtype.Timestamptz{Time: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), Valid: true},
	}

	require.NoError(t, notifier.Notify(context.Background(), ev))
	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	require.Equal(t, aggregate.String(), string(msg.Key))
	require.Equal(t, "topic", msg.Headers[0].Key)
	require.Equal(t, events.TopicOrderStatusChanged, string(msg.Headers[0].Value))

	var envelope events.Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	require.Equal(t, events.TopicOrderStatusChanged, envelope.Topic)
	require.Equal(t, aggregate.String(), envelope.AggregateID)
	require.JSONEq(t, `{"from":"received","to":"preparing"}`, string(envelope.Payload))
}

func TestTaskNotifierMapsTopics(t *testing.T) {
	client := &captureEnqueuer{}
	notifier := events.TaskNotifier{Client: client}
	ctx := context.Background()

	require.NoError(t, notifier.Notify(ctx, dbgen.DomainEvent{ID: toUUID(uuid.New()), Topic: events.TopicOrderPlaced, Payload: []byte(`{"orderId":"1"}`)}))
	require.NoError(t, notifier.Notify(ctx, dbgen.DomainEvent{ID: toUUID(uuid.New()), Topic: events.TopicUserSignedUp, Payload: []byte(`{}`)}))
	require.NoError(t, notifier.Notify(ctx, dbgen.DomainEvent{ID: toUUID(uuid.New()), Topic: events.TopicReviewCreated}))

	require.Len(t, client.tasks, 2)
	require.Equal(t, events.TaskOrderConfirmation, client.tasks[0].Type())
	require.JSONEq(t, `{"orderId":"1"}`, string(client.tasks[0].Payload()))
	require.Equal(t, events.TaskWelcomeEmail, client.tasks[1].Type())
}

func TestTaskNotifierIgnoresDuplicateTaskID(t *testing.T) {
	client := &captureEnqueuer{err: asynq.ErrTaskIDConflict}
	notifier := events.TaskNotifier{Client: client}

	err := notifier.Notify(context.Background(), dbgen.DomainEvent{ID: toUUID(uuid.New()), Topic: events.TopicOrderPlaced})
	require.NoError(t, err)

	client.err = errors.New("redis down")
	err = notifier.Notify(context.Background(), dbgen.DomainEvent{ID: toUUID(uuid.New()), Topic: events.TopicOrderPlaced})
	require.ErrorContains(t, err, "redis down")
}

func TestGuardedNotifierOpensAfterFailures(t *testing.T) {
	sink := &captureNotifier{err: errors.New("broker down")}
	guarded := events.GuardedNotifier{
		Next:     sink,
		Breaker:  resilience.NewBreaker("events-test", 2, 0.5, time.Minute),
		Attempts: 3,
		Backoff:  time.Millisecond,
	}
	ev := dbgen.DomainEvent{Topic: events.TopicOrderPlaced}

	err := guarded.Notify(context.Background(), ev)
	require.ErrorIs(t, err, resilience.ErrOpen)
	require.Len(t, sink.events, 2)

	err = guarded.Notify(context.Background(), ev)
	require.ErrorIs(t, err, resilience.ErrOpen)
	require.Len(t, sink.events, 2)
}

func TestGuardedNotifierRetriesTransientFailure(t *testing.T) {
	sink := &flakyNotifier{failures: 1}
	guarded := events.GuardedNotifier{Next: sink, Attempts: 2, Backoff: time.Millisecond}
	require.NoError(t, guarded.Notify(context.Background(), dbgen.DomainEvent{Topic: events.TopicOrderPlaced}))
	require.Equal(t, 2, sink.calls)
	require.Equal(t, "flaky", guarded.Name())
}

type flakyNotifier struct {
	failures int
	calls    int
}

func (f *flakyNotifier) Name() string { return "flaky" }

func (f *flakyNotifier) Notify(context.Context, dbgen.DomainEvent) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient")
	}
	return nil
}
