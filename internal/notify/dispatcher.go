package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stagegate/internal/config"
	"stagegate/internal/domain"
	"stagegate/internal/event"
	"stagegate/internal/repo"
)

// Dispatcher matches domain events against notification rules and writes one
// outbox row per matched rule. It never returns an error to the caller: a
// notification failure must not affect the action that triggered it, so
// problems are logged and dispatch moves on.
type Dispatcher struct {
	Repo   repo.Repo
	Config *config.Config
	Log    *slog.Logger
	Now    func() time.Time
}

func NewDispatcher(r repo.Repo, cfg *config.Config, log *slog.Logger) *Dispatcher {
	return &Dispatcher{Repo: r, Config: cfg, Log: log, Now: time.Now}
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

// HandleEvent is the event.Publisher plugged into the engine.
func (d *Dispatcher) HandleEvent(ev event.Event) {
	d.Dispatch(context.Background(), ev)
}

// Dispatch queues mail for every active rule matching the event.
func (d *Dispatcher) Dispatch(ctx context.Context, ev event.Event) {
	rules, err := d.Repo.ListActiveRulesByEventKey(ctx, string(ev.Type))
	if err != nil {
		d.log().Error("list notification rules", "event", ev.Type, "error", err)
		return
	}
	for _, rule := range rules {
		if !rule.Matches(string(ev.Type), ev.Stage) {
			continue
		}
		d.dispatchRule(ctx, rule, ev)
	}
}

func (d *Dispatcher) dispatchRule(ctx context.Context, rule domain.NotificationRule, ev event.Event) {
	tmpl, ok := d.Config.TemplateFor(string(ev.Type))
	if !ok {
		d.log().Warn("no mail template configured for event, skipping rule",
			"event", ev.Type, "rule", rule.ID)
		return
	}
	to, err := ResolveRecipients(ctx, d.Repo, rule.Recipients)
	if err != nil {
		d.log().Error("resolve recipients", "rule", rule.ID, "error", err)
		return
	}
	if len(to) == 0 {
		d.log().Warn("rule resolved to no recipients, skipping",
			"event", ev.Type, "rule", rule.ID)
		return
	}
	payload, err := json.Marshal(mailPayload(ev))
	if err != nil {
		d.log().Error("marshal mail payload", "rule", rule.ID, "error", err)
		return
	}
	mail := domain.OutboundMail{
		ID:         uuid.NewString(),
		RuleID:     rule.ID,
		TemplateID: tmpl,
		To:         to,
		Subject:    subjectFor(ev),
		Payload:    string(payload),
		Status:     domain.MailQueued,
		CreatedAt:  d.now().UTC().Format(time.RFC3339),
	}
	if err := d.Repo.InsertMail(ctx, mail); err != nil {
		d.log().Error("queue mail", "rule", rule.ID, "error", err)
		return
	}
	d.log().Info("queued mail", "event", ev.Type, "rule", rule.ID, "recipients", len(to))
}

func subjectFor(ev event.Event) string {
	return fmt.Sprintf("[%s] %s: %s", ev.WorkPackage.Status, ev.WorkPackage.Title, ev.Type)
}

func mailPayload(ev event.Event) map[string]any {
	p := map[string]any{
		"event":          string(ev.Type),
		"workpackage_id": ev.WorkPackage.ID,
		"title":          ev.WorkPackage.Title,
		"status":         string(ev.WorkPackage.Status),
	}
	if ev.ActorID != nil {
		p["actor_id"] = *ev.ActorID
	}
	for k, v := range ev.Payload {
		p[k] = v
	}
	return p
}
