// Package access pins the privileged owner identity and gates
// owner-only operations.
package access

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"signal-market/internal/ledger"
	"signal-market/internal/models"
	"signal-market/internal/repository"
	"signal-market/internal/wallet"
)

const ownerSetting = "owner"

// Control answers "who is the owner". The owner is persisted in
// ledger_settings the first time the ledger boots and is authoritative from
// then on.
type Control struct {
	state *ledger.State
	log   logrus.FieldLogger

	mu    sync.RWMutex
	owner string
}

// New loads the persisted owner or, on a fresh ledger, pins configured.
func New(ctx context.Context, state *ledger.State, configured string, log logrus.FieldLogger) (*Control, error) {
	configured, _, err := wallet.Canonical(configured)
	if err != nil {
		return nil, fmt.Errorf("owner address: %w", err)
	}

	c := &Control{state: state, log: log}
	err = state.Mutate(ctx, func(repo *repository.Repository) error {
		stored, err := repo.GetSetting(ctx, ownerSetting)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.owner = configured
			return repo.SetSetting(ctx, ownerSetting, configured)
		case err != nil:
			return err
		}
		c.owner = stored
		if stored != configured {
			log.WithFields(logrus.Fields{
				"stored":     stored,
				"configured": configured,
			}).Warn("OWNER_ADDRESS differs from persisted owner; keeping persisted owner")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	return c, nil
}

// Owner returns the current owner address.
func (c *Control) Owner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// RequireOwner fails with ErrUnauthorized unless caller is the owner as
// recorded in the transaction repo belongs to.
func (c *Control) RequireOwner(ctx context.Context, repo *repository.Repository, caller string) error {
	owner, err := repo.GetSetting(ctx, ownerSetting)
	if err != nil {
		return fmt.Errorf("read owner: %w", err)
	}
	if caller == "" || caller != owner {
		return ledger.ErrUnauthorized
	}
	return nil
}

// TransferOwnership hands the owner role to newOwner. Only the current
// owner may call it.
func (c *Control) TransferOwnership(ctx context.Context, caller, newOwner string) error {
	newOwner, _, err := wallet.Canonical(newOwner)
	if err != nil {
		return err
	}

	err = c.state.Mutate(ctx, func(repo *repository.Repository) error {
		if err := c.RequireOwner(ctx, repo, caller); err != nil {
			return err
		}
		if err := repo.SetSetting(ctx, ownerSetting, newOwner); err != nil {
			return err
		}
		return repo.CreateAdminLog(ctx, &models.AdminLog{
			Actor:        caller,
			Action:       "transfer_ownership",
			ResourceType: "ledger",
			Details:      models.JSONB{"previous_owner": caller, "new_owner": newOwner},
		})
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.owner = newOwner
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"previous_owner": caller,
		"new_owner":      newOwner,
	}).Info("Ownership transferred")
	return nil
}

// AuditLog returns the newest administrative actions. Only the owner may
// read it.
func (c *Control) AuditLog(ctx context.Context, caller string, limit int) ([]*models.AdminLog, error) {
	repo := c.state.Read(ctx)
	if err := c.RequireOwner(ctx, repo, caller); err != nil {
		return nil, err
	}
	return repo.ListAdminLogs(ctx, limit)
}
