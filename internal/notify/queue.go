package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/metrics"
)

type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// Queue hands notifications to the worker through the message broker.
type Queue struct {
	pub    Publisher
	logger *logrus.Logger
}

func NewQueue(pub Publisher, logger *logrus.Logger) *Queue {
	if logger == nil {
		logger = logrus.New()
	}
	return &Queue{pub: pub, logger: logger}
}

func (q *Queue) Notify(ctx context.Context, note Notification) error {
	if _, ok := templates[note.Kind]; !ok {
		return fmt.Errorf("notify: unknown kind %q", note.Kind)
	}
	err := q.pub.Publish(ctx, note)
	metrics.Get().Notifications.WithLabelValues("queue", metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}
	q.logger.WithFields(logrus.Fields{"kind": note.Kind, "to": note.To}).Debug("notification queued")
	return nil
}
