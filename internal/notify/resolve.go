// Package notify turns domain events into queued mail via admin-authored
// notification rules, and delivers the queue in the background.
package notify

import (
	"context"
	"sort"
	"strings"

	"stagegate/internal/domain"
	"stagegate/internal/repo"
)

// directory is the slice of repo used for recipient resolution.
type directory interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	ListUsersInRole(ctx context.Context, roleID string) ([]domain.User, error)
}

// ResolveRecipients expands a recipient spec into a deterministic, deduplicated
// list of email addresses: the union of all named roles' members and the named
// users. Stale user ids are skipped rather than failing the whole resolution,
// so one removed account never silences a notification. Addresses are
// lowercased for dedup and returned sorted.
func ResolveRecipients(ctx context.Context, dir directory, spec domain.RecipientSpec) ([]string, error) {
	seen := make(map[string]struct{})
	for _, roleID := range spec.Roles {
		members, err := dir.ListUsersInRole(ctx, roleID)
		if err != nil {
			return nil, err
		}
		for _, u := range members {
			addRecipient(seen, u.Email)
		}
	}
	for _, userID := range spec.Users {
		u, err := dir.GetUser(ctx, userID)
		if err == repo.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		addRecipient(seen, u.Email)
	}
	out := make([]string, 0, len(seen))
	for email := range seen {
		out = append(out, email)
	}
	sort.Strings(out)
	return out, nil
}

func addRecipient(seen map[string]struct{}, email string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return
	}
	seen[email] = struct{}{}
}
