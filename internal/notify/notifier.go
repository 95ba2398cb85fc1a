package notify

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const enqueueTimeout = 5 * time.Second

type Queue interface {
	Publish(ctx context.Context, in Intent) error
}

// Notifier is what the services hold. Enqueue never fails the caller: a
// queue error is logged against the recipient and dropped.
type Notifier struct {
	Queue Queue
}

func NewNotifier(q Queue) *Notifier {
	return &Notifier{Queue: q}
}

func (n *Notifier) Enqueue(ctx context.Context, in Intent) {
	l := logging.FromContext(ctx).With("component", "notifier", "kind", string(in.Kind))
	if n == nil || n.Queue == nil {
		l.Warn("notify_dropped", "reason", "no_queue", "to", in.To)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()
	if err := n.Queue.Publish(ctx, in); err != nil {
		l.Error("notify_enqueue_failed", "to", in.To, "error", err)
		return
	}
	l.Debug("notify_enqueued", "to", in.To)
}
