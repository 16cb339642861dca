package notify_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"stagegate/internal/config"
	"stagegate/internal/db"
	"stagegate/internal/domain"
	"stagegate/internal/event"
	"stagegate/internal/migrate"
	"stagegate/internal/notify"
	"stagegate/internal/repo"
)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func addUser(t *testing.T, r repo.Repo, id, email string) {
	t.Helper()
	err := r.InsertUser(context.Background(), domain.User{
		ID:        id,
		Name:      id,
		Email:     email,
		CreatedAt: "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("insert user %s: %v", id, err)
	}
}

func addRoleWithMembers(t *testing.T, r repo.Repo, roleID string, userIDs ...string) {
	t.Helper()
	ctx := context.Background()
	if err := r.UpsertRole(ctx, domain.Role{ID: roleID, Name: roleID}); err != nil {
		t.Fatalf("upsert role: %v", err)
	}
	for _, uid := range userIDs {
		if err := r.AssignRole(ctx, uid, roleID); err != nil {
			t.Fatalf("assign %s to %s: %v", uid, roleID, err)
		}
	}
}

func TestResolveRecipients(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "Alice@Example.com")
	addUser(t, r, "u2", "bob@example.com")
	addUser(t, r, "u3", "carol@example.com")
	addRoleWithMembers(t, r, "service-leads", "u1", "u2")

	// union of role members and direct users, deduplicated and sorted
	got, err := notify.ResolveRecipients(ctx, r, domain.RecipientSpec{
		Roles: []string{"service-leads"},
		Users: []string{"u2", "u3", "gone-user"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"alice@example.com", "bob@example.com", "carol@example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("recipients = %v, want %v", got, want)
	}

	// unknown role contributes nothing rather than failing
	got, err = notify.ResolveRecipients(ctx, r, domain.RecipientSpec{Roles: []string{"no-such-role"}})
	if err != nil {
		t.Fatalf("resolve unknown role: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("recipients = %v, want none", got)
	}
}

func wpEvent(typ event.Type, stage domain.Status) event.Event {
	return event.Event{
		Type: typ,
		WorkPackage: domain.WorkPackage{
			ID:     "wp-1",
			Title:  "Replace legacy portal",
			Status: stage,
		},
		Stage: stage,
	}
}

func TestDispatcherQueuesMail(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "alice@example.com")
	addUser(t, r, "u2", "bob@example.com")
	addRoleWithMembers(t, r, "service-leads", "u1")

	if err := r.InsertRule(ctx, domain.NotificationRule{
		ID:       "rule-1",
		EventKey: string(event.TypeWorkPackageCreated),
		Recipients: domain.RecipientSpec{
			Roles: []string{"service-leads"},
			Users: []string{"u2"},
		},
		Active:    true,
		CreatedAt: "2026-01-01T00:00:00Z",
	}); err != nil {
		t.Fatalf("insert rule: %v", err)
	}

	d := notify.NewDispatcher(r, config.Default("stagegate"), nil)
	d.Now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }
	d.Dispatch(ctx, wpEvent(event.TypeWorkPackageCreated, domain.StatusIdeation))

	mail, err := r.ListMail(ctx, 0)
	if err != nil {
		t.Fatalf("list mail: %v", err)
	}
	if len(mail) != 1 {
		t.Fatalf("outbox rows = %d, want 1", len(mail))
	}
	m := mail[0]
	if m.RuleID != "rule-1" || m.TemplateID != "tmpl-workpackage-created" {
		t.Fatalf("mail = %+v", m)
	}
	if !reflect.DeepEqual(m.To, []string{"alice@example.com", "bob@example.com"}) {
		t.Fatalf("to = %v", m.To)
	}
	if m.Status != domain.MailQueued || m.Attempts != 0 {
		t.Fatalf("mail = %+v, want queued with zero attempts", m)
	}
}

func TestDispatcherSkipsNonMatchingRules(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "alice@example.com")

	// stage discriminator mismatch
	if err := r.InsertRule(ctx, domain.NotificationRule{
		ID:         "rule-stage",
		EventKey:   string(event.TypeStageChanged),
		Stage:      domain.StatusDeployed,
		Recipients: domain.RecipientSpec{Users: []string{"u1"}},
		Active:     true,
		CreatedAt:  "2026-01-01T00:00:00Z",
	}); err != nil {
		t.Fatal(err)
	}
	// inactive rule
	if err := r.InsertRule(ctx, domain.NotificationRule{
		ID:         "rule-off",
		EventKey:   string(event.TypeStageChanged),
		Recipients: domain.RecipientSpec{Users: []string{"u1"}},
		Active:     false,
		CreatedAt:  "2026-01-01T00:00:00Z",
	}); err != nil {
		t.Fatal(err)
	}
	// rule whose recipients have all gone stale
	if err := r.InsertRule(ctx, domain.NotificationRule{
		ID:         "rule-stale",
		EventKey:   string(event.TypeStageChanged),
		Recipients: domain.RecipientSpec{Users: []string{"gone"}},
		Active:     true,
		CreatedAt:  "2026-01-01T00:00:00Z",
	}); err != nil {
		t.Fatal(err)
	}

	d := notify.NewDispatcher(r, config.Default("stagegate"), nil)
	d.Dispatch(ctx, wpEvent(event.TypeStageChanged, domain.StatusTesting))

	mail, err := r.ListMail(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(mail) != 0 {
		t.Fatalf("outbox rows = %d, want none", len(mail))
	}
}

func TestDispatcherSkipsUnmappedTemplate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	addUser(t, r, "u1", "alice@example.com")
	if err := r.InsertRule(ctx, domain.NotificationRule{
		ID:         "rule-1",
		EventKey:   "custom.event",
		Recipients: domain.RecipientSpec{Users: []string{"u1"}},
		Active:     true,
		CreatedAt:  "2026-01-01T00:00:00Z",
	}); err != nil {
		t.Fatal(err)
	}

	d := notify.NewDispatcher(r, config.Default("stagegate"), nil)
	d.Dispatch(ctx, wpEvent(event.Type("custom.event"), domain.StatusIdeation))

	mail, err := r.ListMail(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(mail) != 0 {
		t.Fatalf("outbox rows = %d, want none for unmapped event", len(mail))
	}
}

type flakySender struct {
	failures int
	sent     []string
}

func (s *flakySender) Send(_ context.Context, mail domain.OutboundMail) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, mail.ID)
	return nil
}

func TestWorkerDeliversAndRetries(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	if err := r.InsertMail(ctx, domain.OutboundMail{
		ID:         "mail-1",
		RuleID:     "rule-1",
		TemplateID: "tmpl-workpackage-created",
		To:         []string{"alice@example.com"},
		Subject:    "[ideation] Replace legacy portal: workpackage.created",
		Status:     domain.MailQueued,
		CreatedAt:  "2026-01-01T00:00:00Z",
	}); err != nil {
		t.Fatalf("queue mail: %v", err)
	}

	sender := &flakySender{failures: 1}
	w := notify.NewWorker(r, sender, time.Second, nil)
	w.Now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	// first pass fails, message stays queued with one attempt
	w.DeliverPending(ctx)
	mail, err := r.ListMail(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if mail[0].Status != domain.MailQueued || mail[0].Attempts != 1 {
		t.Fatalf("mail = %+v, want queued after failed attempt", mail[0])
	}

	// second pass succeeds
	w.DeliverPending(ctx)
	mail, err = r.ListMail(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if mail[0].Status != domain.MailSent || mail[0].Attempts != 2 {
		t.Fatalf("mail = %+v, want sent after retry", mail[0])
	}
	if mail[0].SentAt == nil || *mail[0].SentAt != "2026-01-02T00:00:00Z" {
		t.Fatalf("sent_at = %v", mail[0].SentAt)
	}
	if !reflect.DeepEqual(sender.sent, []string{"mail-1"}) {
		t.Fatalf("sent = %v", sender.sent)
	}

	// a third pass is a no-op
	w.DeliverPending(ctx)
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %v, delivered mail must not be re-sent", sender.sent)
	}
}
