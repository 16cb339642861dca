// Package app wires the workspace together: config resolution and first-run
// seeding of the role directory.
package app

import (
	"context"
	"fmt"

	"stagegate/internal/config"
	"stagegate/internal/domain"
	"stagegate/internal/repo"
)

// ResolveConfig loads stagegate.yml from the workspace, falling back to the
// built-in defaults when no file exists, and seeds the role directory so
// notification rules can reference the configured roles immediately.
func ResolveConfig(ctx context.Context, workspace string, r repo.Repo) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default("stagegate")
	}
	if err := SeedRoles(ctx, r, cfg); err != nil {
		return nil, fmt.Errorf("seed roles: %w", err)
	}
	return cfg, nil
}

// SeedRoles upserts the configured roles. Existing role names are refreshed;
// members are never touched.
func SeedRoles(ctx context.Context, r repo.Repo, cfg *config.Config) error {
	for id, role := range cfg.Roles {
		if err := r.UpsertRole(ctx, domain.Role{ID: id, Name: role.Description}); err != nil {
			return err
		}
	}
	return nil
}
