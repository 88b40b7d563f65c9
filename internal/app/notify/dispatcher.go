package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sbchat/internal/pkg/logx"
)

const (
	// queueSize bounds the number of pending notification tasks. Beyond it,
	// new tasks are dropped with a log line rather than blocking the caller.
	queueSize = 1024

	// taskTimeout bounds the persistence write for a single task.
	taskTimeout = 10 * time.Second
)

// Writer persists notification rows. Implemented by Store.
type Writer interface {
	Save(ctx context.Context, userID, notificationType, message string) (Notification, error)
}

// Pusher delivers a frame to every live subscriber of a group. Implemented by
// the connection registry.
type Pusher interface {
	Broadcast(group string, frame any) int
}

// Frame is the payload pushed on a user's personal notification channel.
type Frame struct {
	Message          string `json:"message"`
	NotificationType string `json:"notification_type"`
}

type task struct {
	userID           string
	notificationType string
	message          string
}

// Dispatcher is the single integration point business operations use to alert a
// user. Notify enqueues; a background worker persists the notification row and
// pushes it on the recipient's personal channel, so the triggering transaction
// never depends on delivery succeeding synchronously.
type Dispatcher struct {
	store  Writer
	pusher Pusher

	// queue carries pending tasks to the worker. queueMu and queueClosed make
	// Notify safe against a concurrent Shutdown closing the channel.
	queue       chan task
	queueMu     sync.RWMutex
	queueClosed bool

	wg sync.WaitGroup

	logger zerolog.Logger
}

// UserGroup derives the personal-channel group key for a recipient.
func UserGroup(userID string) string {
	return "user:" + userID
}

// NewDispatcher constructs a Dispatcher and starts its worker goroutine.
func NewDispatcher(store Writer, pusher Pusher) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		pusher: pusher,
		queue:  make(chan task, queueSize),
		logger: logx.Logger().With().Str("component", "Dispatcher").Logger(),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Notify submits a notification for the recipient. Fire-and-forget: delivery is
// best-effort and the call never blocks. Sessions may outlive the HTTP server
// during shutdown, so submissions after Shutdown are dropped, not a panic.
func (d *Dispatcher) Notify(userID, notificationType, text string) {
	d.queueMu.RLock()
	defer d.queueMu.RUnlock()

	if d.queueClosed {
		d.logger.Warn().
			Str("user_id", userID).
			Str("notification_type", notificationType).
			Msg("Dispatcher already shut down, dropping notification")
		return
	}

	select {
	case d.queue <- task{userID: userID, notificationType: notificationType, message: text}:
	default:
		d.logger.Warn().
			Str("user_id", userID).
			Str("notification_type", notificationType).
			Msg("Notification queue full, dropping notification")
	}
}

// run drains the queue until Shutdown closes it. Each task is persisted and then
// pushed; the two steps are independently best-effort, so a failed row write
// still attempts the live push and vice versa.
func (d *Dispatcher) run() {
	defer d.wg.Done()

	for t := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)

		if _, err := d.store.Save(ctx, t.userID, t.notificationType, t.message); err != nil {
			d.logger.Error().Err(err).
				Str("user_id", t.userID).
				Str("notification_type", t.notificationType).
				Msg("Failed to persist notification")
		}

		cancel()

		d.pusher.Broadcast(UserGroup(t.userID), Frame{
			Message:          t.message,
			NotificationType: t.notificationType,
		})
	}
}

// Shutdown stops accepting tasks and waits for the worker to drain the queue.
// Safe to call once; later Notify calls are dropped.
func (d *Dispatcher) Shutdown() {
	d.queueMu.Lock()
	if !d.queueClosed {
		d.queueClosed = true
		close(d.queue)
	}
	d.queueMu.Unlock()

	d.wg.Wait()
}
