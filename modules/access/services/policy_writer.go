package services

import (
	"context"
	"fmt"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/ports"
	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/types"
	"github.com/marcochiesi/editorial-access-manager/pkg/capability"
)

type SaveOutcome string

const (
	SaveApplied          SaveOutcome = "applied"
	SaveSkippedAutosave  SaveOutcome = "skipped_autosave"
	SaveSkippedForbidden SaveOutcome = "skipped_forbidden"
	SaveSkippedRevision  SaveOutcome = "skipped_revision"
	SaveSkippedNonce     SaveOutcome = "skipped_nonce"
)

// SaveRequest is the raw submission for one item. Values are untrusted.
type SaveRequest struct {
	ItemID   int64
	ActorID  int64
	Autosave bool
	Nonce    string
	Enable   string
	Roles    []string
	Users    []string
}

type PolicyWriter struct {
	policies ports.PolicyStore
	items    ports.ItemStore
	checker  ports.CapabilityChecker
	nonces   ports.NonceVerifier
}

func NewPolicyWriter(policies ports.PolicyStore, items ports.ItemStore, checker ports.CapabilityChecker, nonces ports.NonceVerifier) *PolicyWriter {
	return &PolicyWriter{policies: policies, items: items, checker: checker, nonces: nonces}
}

// Save persists the submitted policy fields. A request failing the trust
// checks is skipped without error; the outcome says why.
func (w *PolicyWriter) Save(ctx context.Context, req SaveRequest) (SaveOutcome, error) {
	if req.Autosave {
		return SaveSkippedAutosave, nil
	}
	can, err := w.checker.UserCan(ctx, req.ActorID, capability.EditPost, req.ItemID)
	if err != nil {
		return "", err
	}
	if !can {
		return SaveSkippedForbidden, nil
	}
	item, found, err := w.items.GetItem(ctx, req.ItemID)
	if err != nil {
		return "", err
	}
	if found && item.Type == types.ItemTypeRevision {
		return SaveSkippedRevision, nil
	}
	if req.Nonce == "" || !w.nonces.Verify(req.Nonce, types.NonceAction, req.ActorID) {
		return SaveSkippedNonce, nil
	}

	if req.Enable != "" && req.Enable != "0" {
		err = w.policies.SetEnabled(ctx, req.ItemID, intval(req.Enable))
	} else {
		err = w.policies.ClearEnabled(ctx, req.ItemID)
	}
	if err != nil {
		return "", fmt.Errorf("access: save %s: %w", types.MetaEnableCustomAccess, err)
	}

	if len(req.Roles) > 0 {
		roles := make([]string, 0, len(req.Roles))
		for _, r := range req.Roles {
			roles = append(roles, sanitizeTextField(r))
		}
		err = w.policies.SetAllowedRoles(ctx, req.ItemID, roles)
	} else {
		err = w.policies.ClearAllowedRoles(ctx, req.ItemID)
	}
	if err != nil {
		return "", fmt.Errorf("access: save %s: %w", types.MetaAllowedRoles, err)
	}

	if len(req.Users) > 0 {
		users := make([]int64, 0, len(req.Users))
		for _, u := range req.Users {
			users = append(users, absint(u))
		}
		err = w.policies.SetAllowedUsers(ctx, req.ItemID, users)
	} else {
		err = w.policies.ClearAllowedUsers(ctx, req.ItemID)
	}
	if err != nil {
		return "", fmt.Errorf("access: save %s: %w", types.MetaAllowedUsers, err)
	}
	return SaveApplied, nil
}
