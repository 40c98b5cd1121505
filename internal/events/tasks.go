package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

// Task types consumed by the worker.
const (
	TaskOrderConfirmation = "email:order_confirmation"
	TaskWelcomeEmail      = "email:welcome"
)

// EmailQueue is the asynq queue email tasks are enqueued on.
const EmailQueue = "email"

// TaskEnqueuer is the part of asynq.Client the notifier uses.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskNotifier turns selected events into background tasks. The event id doubles as the
// task id, so publishing the same event twice enqueues one task.
type TaskNotifier struct {
	Client   TaskEnqueuer
	MaxRetry int
	Timeout  time.Duration
}

var taskTypes = map[string]string{
	TopicOrderPlaced:  TaskOrderConfirmation,
	TopicUserSignedUp: TaskWelcomeEmail,
}

// TaskTypeFor returns the task type mapped to topic, or "" when the topic has none.
func TaskTypeFor(topic string) string {
	return taskTypes[topic]
}

// Name implements Named.
func (n TaskNotifier) Name() string { return "asynq" }

// Notify implements Notifier.
func (n TaskNotifier) Notify(ctx context.Context, ev dbgen.DomainEvent) error {
	taskType := TaskTypeFor(ev.Topic)
	if taskType == "" {
		return nil
	}
	if n.Client == nil {
		return errors.New("task client not configured")
	}
	maxRetry := n.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	task := asynq.NewTask(taskType, append([]byte(nil), ev.Payload...))
	_, err := n.Client.EnqueueContext(ctx, task,
		asynq.TaskID(common.UUIDString(ev.ID)),
		asynq.Queue(EmailQueue),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(timeout),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
