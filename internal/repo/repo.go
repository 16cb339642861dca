package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"stagegate/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// dbtx is satisfied by both *sql.DB and *sql.Tx so stage reads can happen
// inside or outside a gated action's transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) conn(tx *sql.Tx) dbtx {
	if tx != nil {
		return tx
	}
	return r.DB
}

func (r Repo) InsertWorkPackageTx(ctx context.Context, tx *sql.Tx, wp domain.WorkPackage) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO workpackages(id,title,owner_id,status,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		wp.ID, wp.Title, wp.OwnerID, string(wp.Status), wp.CreatedAt, wp.UpdatedAt)
	return err
}

func scanWorkPackage(row *sql.Row) (domain.WorkPackage, error) {
	var wp domain.WorkPackage
	var status string
	err := row.Scan(&wp.ID, &wp.Title, &wp.OwnerID, &status, &wp.CreatedAt, &wp.UpdatedAt)
	if err == sql.ErrNoRows {
		return wp, ErrNotFound
	}
	wp.Status = domain.Status(status)
	return wp, err
}

func (r Repo) GetWorkPackage(ctx context.Context, id string) (domain.WorkPackage, error) {
	return scanWorkPackage(r.DB.QueryRowContext(ctx,
		`SELECT id,title,owner_id,status,created_at,updated_at FROM workpackages WHERE id=?`, id))
}

// GetWorkPackageTx re-reads the row inside a transaction so gated actions
// validate against fresh state rather than what the caller last saw.
func (r Repo) GetWorkPackageTx(ctx context.Context, tx *sql.Tx, id string) (domain.WorkPackage, error) {
	return scanWorkPackage(tx.QueryRowContext(ctx,
		`SELECT id,title,owner_id,status,created_at,updated_at FROM workpackages WHERE id=?`, id))
}

func (r Repo) UpdateWorkPackageStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.Status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE workpackages SET status=?, updated_at=? WHERE id=?`, string(status), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type WorkPackageFilters struct {
	Status          domain.Status
	OwnerID         string
	IncludeInactive bool
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

// ListWorkPackages returns work packages newest first with cursor pagination.
// Cancelled packages are excluded from active views unless asked for.
func (r Repo) ListWorkPackages(ctx context.Context, f WorkPackageFilters) ([]domain.WorkPackage, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, string(f.Status))
	} else if !f.IncludeInactive {
		clauses = append(clauses, "status != ?")
		args = append(args, string(domain.StatusCancelled))
	}
	if f.OwnerID != "" {
		clauses = append(clauses, "owner_id=?")
		args = append(args, f.OwnerID)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	query := `SELECT id,title,owner_id,status,created_at,updated_at FROM workpackages WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkPackage
	for rows.Next() {
		var wp domain.WorkPackage
		var status string
		if err := rows.Scan(&wp.ID, &wp.Title, &wp.OwnerID, &status, &wp.CreatedAt, &wp.UpdatedAt); err != nil {
			return nil, err
		}
		wp.Status = domain.Status(status)
		res = append(res, wp)
	}
	return res, rows.Err()
}

// ListHistory returns the audit trail for a work package, oldest first.
func (r Repo) ListHistory(ctx context.Context, workPackageID string, limit int) ([]domain.HistoryEntry, error) {
	query := `SELECT id,workpackage_id,actor_id,description,created_at FROM history WHERE workpackage_id=? ORDER BY created_at ASC, id ASC`
	args := []any{workPackageID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.HistoryEntry
	for rows.Next() {
		var h domain.HistoryEntry
		var actor sql.NullString
		if err := rows.Scan(&h.ID, &h.WorkPackageID, &actor, &h.Description, &h.CreatedAt); err != nil {
			return nil, err
		}
		if actor.Valid {
			h.ActorID = &actor.String
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

func (r Repo) CountHistory(ctx context.Context, workPackageID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM history WHERE workpackage_id=?`, workPackageID).Scan(&n)
	return n, err
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func scanStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
