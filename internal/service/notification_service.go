package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/jobs"
)

const notificationJobType = "notification"

// NotificationSink accepts fire-and-forget toasts for a recipient.
type NotificationSink interface {
	Notify(ctx context.Context, recipientID string, n models.Notification)
}

// NotificationDeliverer hands a notification to one channel.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, n models.DeliveredNotification) error
}

type notificationQueue interface {
	Enqueue(job jobs.Job) error
}

type notificationMetrics interface {
	RecordNotification(variant, outcome string)
}

type notificationJob struct {
	notification models.DeliveredNotification
	deliverer    int
}

// NotificationService fans notifications out to deliverers through a background queue.
type NotificationService struct {
	queue      notificationQueue
	deliverers []NotificationDeliverer
	metrics    notificationMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService wires a service and the queue that drives it. The caller owns Start/Stop of the queue.
func NewNotificationService(cfg jobs.QueueConfig, metrics notificationMetrics, logger *zap.Logger, deliverers ...NotificationDeliverer) (*NotificationService, *jobs.Queue) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	svc := &NotificationService{
		deliverers: deliverers,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
	queue := jobs.NewQueue("notifications", svc.handle, cfg)
	svc.queue = queue
	return svc, queue
}

// Notify schedules delivery on every deliverer. Failures are logged and dropped.
func (s *NotificationService) Notify(ctx context.Context, recipientID string, n models.Notification) {
	if s == nil || recipientID == "" {
		return
	}
	if n.Variant == "" {
		n.Variant = models.NotificationVariantDefault
	}
	delivered := models.DeliveredNotification{Notification: n, RecipientID: recipientID, CreatedAt: s.now().UTC()}

	outcome := "queued"
	for i := range s.deliverers {
		err := s.queue.Enqueue(jobs.Job{
			Type:    notificationJobType,
			Payload: notificationJob{notification: delivered, deliverer: i},
		})
		if err != nil {
			outcome = "dropped"
			s.logger.Warn("notification dropped", zap.String("recipient_id", recipientID), zap.String("title", n.Title), zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.RecordNotification(string(n.Variant), outcome)
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notificationJob)
	if !ok || payload.deliverer < 0 || payload.deliverer >= len(s.deliverers) {
		s.logger.Error("unexpected notification job", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.deliverers[payload.deliverer].Deliver(ctx, payload.notification); err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	return nil
}

// LogDeliverer writes notifications to the structured log.
type LogDeliverer struct {
	logger *zap.Logger
}

// NewLogDeliverer constructs a LogDeliverer.
func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDeliverer{logger: logger}
}

// Deliver implements NotificationDeliverer.
func (d *LogDeliverer) Deliver(_ context.Context, n models.DeliveredNotification) error {
	d.logger.Info("notification",
		zap.String("recipient_id", n.RecipientID),
		zap.String("title", n.Title),
		zap.String("description", n.Description),
		zap.String("variant", string(n.Variant)),
	)
	return nil
}

// Inbox keeps the most recent notifications of each user in memory.
type Inbox struct {
	mu       sync.Mutex
	capacity int
	items    map[string][]models.DeliveredNotification
}

// NewInbox builds an inbox holding at most capacity entries per user.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = 20
	}
	return &Inbox{capacity: capacity, items: make(map[string][]models.DeliveredNotification)}
}

// Deliver implements NotificationDeliverer. The oldest entry is evicted when the inbox is full.
func (i *Inbox) Deliver(_ context.Context, n models.DeliveredNotification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	list := append(i.items[n.RecipientID], n)
	if over := len(list) - i.capacity; over > 0 {
		list = append([]models.DeliveredNotification(nil), list[over:]...)
	}
	i.items[n.RecipientID] = list
	return nil
}

// Drain returns the pending notifications of a user, oldest first, and clears them.
func (i *Inbox) Drain(_ context.Context, recipientID string) []models.DeliveredNotification {
	i.mu.Lock()
	defer i.mu.Unlock()
	list := i.items[recipientID]
	delete(i.items, recipientID)
	if list == nil {
		return []models.DeliveredNotification{}
	}
	return list
}
