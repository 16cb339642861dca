// Package history appends immutable audit rows for work packages. Entries
// are written inside the same transaction as the state change they describe
// and are never updated or deleted.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Writer struct {
	Now func() time.Time
}

// Append writes one history row within tx. actorID may be nil for
// system-initiated actions.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, workPackageID string, actorID *string, description string) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	var actor any
	if actorID != nil && *actorID != "" {
		actor = *actorID
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO history(id,workpackage_id,actor_id,description,created_at) VALUES (?,?,?,?,?)`,
		uuid.New().String(), workPackageID, actor, description, ts)
	return err
}
