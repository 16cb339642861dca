package notify

import (
	"context"
	"log/slog"
	"time"

	"stagegate/internal/domain"
	"stagegate/internal/repo"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
)

// Sender delivers one outbound mail. Implementations must be safe for
// repeated delivery attempts of the same message.
type Sender interface {
	Send(ctx context.Context, mail domain.OutboundMail) error
}

// LogSender logs deliveries instead of sending them. It is the default when
// no SMTP transport is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, mail domain.OutboundMail) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("mail delivered",
		"id", mail.ID, "template", mail.TemplateID, "to", mail.To, "subject", mail.Subject)
	return nil
}

// Worker drains the mail outbox in the background. Queued rows survive
// restarts, so a crash between dispatch and delivery only delays the mail.
type Worker struct {
	Repo     repo.Repo
	Sender   Sender
	Interval time.Duration
	Log      *slog.Logger
	Now      func() time.Time
}

func NewWorker(r repo.Repo, sender Sender, interval time.Duration, log *slog.Logger) *Worker {
	if sender == nil {
		sender = LogSender{Log: log}
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Worker{Repo: r, Sender: sender, Interval: interval, Log: log, Now: time.Now}
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Worker) log() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		w.DeliverPending(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DeliverPending attempts delivery of all queued mail. Failed messages stay
// queued with an incremented attempt count and are retried next tick.
func (w *Worker) DeliverPending(ctx context.Context) {
	pending, err := w.Repo.ListQueuedMail(ctx, defaultBatchSize)
	if err != nil {
		w.log().Error("list queued mail", "error", err)
		return
	}
	for _, mail := range pending {
		if err := w.Repo.IncrementMailAttempts(ctx, mail.ID); err != nil {
			w.log().Error("record delivery attempt", "id", mail.ID, "error", err)
			continue
		}
		if err := w.Sender.Send(ctx, mail); err != nil {
			w.log().Warn("mail delivery failed, will retry", "id", mail.ID, "attempts", mail.Attempts+1, "error", err)
			continue
		}
		if err := w.Repo.MarkMailSent(ctx, mail.ID, w.now().UTC().Format(time.RFC3339)); err != nil {
			w.log().Error("mark mail sent", "id", mail.ID, "error", err)
		}
	}
}
