package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	sendTimeout  = 15 * time.Second
	fetchBackoff = 2 * time.Second
)

type Worker struct {
	Source  Source
	Mailer  Mailer
	Metrics *metrics.Business
}

// Run delivers intents until ctx is done or the source closes. A failed
// send is logged and counted, then acknowledged anyway.
func (w *Worker) Run(ctx context.Context) error {
	l := logging.FromContext(ctx).With("component", "notify_worker")
	l.Info("notify_worker_started")
	defer l.Info("notify_worker_stopped")

	for {
		in, ack, err := w.Source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return nil
			}
			l.Warn("notify_fetch_failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchBackoff):
			}
			continue
		}

		w.deliver(ctx, in)

		if ack != nil {
			if err := ack(ctx); err != nil {
				l.Warn("notify_ack_failed", "kind", string(in.Kind), "to", in.To, "error", err)
			}
		}
	}
}

func (w *Worker) deliver(ctx context.Context, in Intent) {
	l := logging.FromContext(ctx).With("kind", string(in.Kind), "to", in.To)

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := w.Mailer.Send(sendCtx, in.To, in.Subject, in.Body); err != nil {
		l.Error("notify_send_failed", "error", err)
		w.Metrics.RecordNotification(ctx, string(in.Kind), false)
		return
	}
	l.Info("notify_sent")
	w.Metrics.RecordNotification(ctx, string(in.Kind), true)
}
