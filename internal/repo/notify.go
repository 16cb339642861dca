package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"stagegate/internal/domain"
)

// --- users ---

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,name,email,created_at) VALUES (?,?,?,?)`,
		u.ID, u.Name, u.Email, u.CreatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,email,created_at FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,email,created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) DeleteUser(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- roles ---

func (r Repo) UpsertRole(ctx context.Context, role domain.Role) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO roles(id,name) VALUES (?,?) ON CONFLICT(id) DO UPDATE SET name=excluded.name`,
		role.ID, role.Name)
	return err
}

func (r Repo) GetRole(ctx context.Context, id string) (domain.Role, error) {
	var role domain.Role
	err := r.DB.QueryRowContext(ctx, `SELECT id,name FROM roles WHERE id=?`, id).Scan(&role.ID, &role.Name)
	if err == sql.ErrNoRows {
		return role, ErrNotFound
	}
	return role, err
}

func (r Repo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		res = append(res, role)
	}
	return res, rows.Err()
}

func (r Repo) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_roles(user_id,role_id) VALUES (?,?) ON CONFLICT(user_id,role_id) DO NOTHING`,
		userID, roleID)
	return err
}

func (r Repo) UnassignRole(ctx context.Context, userID, roleID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id=? AND role_id=?`, userID, roleID)
	return err
}

// ListUsersInRole returns the members of a role. An unknown role id yields an
// empty slice, not an error; recipient resolution treats it as stale.
func (r Repo) ListUsersInRole(ctx context.Context, roleID string) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT u.id,u.name,u.email,u.created_at FROM users u
		 JOIN user_roles ur ON ur.user_id = u.id
		 WHERE ur.role_id=? ORDER BY u.id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// --- notification rules ---

func (r Repo) InsertRule(ctx context.Context, rule domain.NotificationRule) error {
	recipients, err := json.Marshal(rule.Recipients)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO notification_rules(id,event_key,stage,recipients_json,active,created_at) VALUES (?,?,?,?,?,?)`,
		rule.ID, rule.EventKey, string(rule.Stage), string(recipients), boolInt(rule.Active), rule.CreatedAt)
	return err
}

func (r Repo) UpdateRule(ctx context.Context, rule domain.NotificationRule) error {
	recipients, err := json.Marshal(rule.Recipients)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE notification_rules SET event_key=?, stage=?, recipients_json=?, active=? WHERE id=?`,
		rule.EventKey, string(rule.Stage), string(recipients), boolInt(rule.Active), rule.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetRule(ctx context.Context, id string) (domain.NotificationRule, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id,event_key,stage,recipients_json,active,created_at FROM notification_rules WHERE id=?`, id)
	return scanRule(row.Scan)
}

func (r Repo) DeleteRule(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM notification_rules WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListRules(ctx context.Context) ([]domain.NotificationRule, error) {
	return r.queryRules(ctx,
		`SELECT id,event_key,stage,recipients_json,active,created_at FROM notification_rules ORDER BY created_at, id`)
}

// ListActiveRulesByEventKey returns the active rules for an event key in a
// stable order so dispatch is deterministic.
func (r Repo) ListActiveRulesByEventKey(ctx context.Context, eventKey string) ([]domain.NotificationRule, error) {
	return r.queryRules(ctx,
		`SELECT id,event_key,stage,recipients_json,active,created_at FROM notification_rules
		 WHERE event_key=? AND active=1 ORDER BY created_at, id`, eventKey)
}

func (r Repo) queryRules(ctx context.Context, query string, args ...any) ([]domain.NotificationRule, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.NotificationRule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rule)
	}
	return res, rows.Err()
}

func scanRule(scan func(...any) error) (domain.NotificationRule, error) {
	var rule domain.NotificationRule
	var stage, recipients string
	var active int
	err := scan(&rule.ID, &rule.EventKey, &stage, &recipients, &active, &rule.CreatedAt)
	if err == sql.ErrNoRows {
		return rule, ErrNotFound
	}
	if err != nil {
		return rule, err
	}
	rule.Stage = domain.Status(stage)
	rule.Active = active != 0
	if err := json.Unmarshal([]byte(recipients), &rule.Recipients); err != nil {
		return rule, err
	}
	return rule, nil
}

// --- mail outbox ---

func (r Repo) InsertMail(ctx context.Context, m domain.OutboundMail) error {
	to, err := json.Marshal(m.To)
	if err != nil {
		return err
	}
	payload := m.Payload
	if payload == "" {
		payload = "{}"
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO mail_outbox(id,rule_id,template_id,recipients_json,subject,payload_json,status,attempts,created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		m.ID, m.RuleID, m.TemplateID, string(to), m.Subject, payload, m.Status, m.Attempts, m.CreatedAt)
	return err
}

// ListQueuedMail returns queued messages oldest first for the delivery worker.
func (r Repo) ListQueuedMail(ctx context.Context, limit int) ([]domain.OutboundMail, error) {
	query := `SELECT id,rule_id,template_id,recipients_json,subject,payload_json,status,attempts,created_at,sent_at
	          FROM mail_outbox WHERE status=? ORDER BY created_at, id`
	args := []any{domain.MailQueued}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryMail(ctx, query, args...)
}

func (r Repo) ListMail(ctx context.Context, limit int) ([]domain.OutboundMail, error) {
	query := `SELECT id,rule_id,template_id,recipients_json,subject,payload_json,status,attempts,created_at,sent_at
	          FROM mail_outbox ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryMail(ctx, query, args...)
}

func (r Repo) queryMail(ctx context.Context, query string, args ...any) ([]domain.OutboundMail, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.OutboundMail
	for rows.Next() {
		var m domain.OutboundMail
		var to string
		var sentAt sql.NullString
		if err := rows.Scan(&m.ID, &m.RuleID, &m.TemplateID, &to, &m.Subject, &m.Payload,
			&m.Status, &m.Attempts, &m.CreatedAt, &sentAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(to), &m.To); err != nil {
			return nil, err
		}
		m.SentAt = scanStringPtr(sentAt)
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) MarkMailSent(ctx context.Context, id, sentAt string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE mail_outbox SET status=?, sent_at=? WHERE id=?`, domain.MailSent, sentAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) IncrementMailAttempts(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE mail_outbox SET attempts=attempts+1 WHERE id=?`, id)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
