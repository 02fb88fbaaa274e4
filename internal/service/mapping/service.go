// Package mapping administers the role-to-account assignments the rule engine
// resolves against. Nature compatibility is enforced at write time, so a bad
// assignment is rejected before any rule can ever route an amount through it.
package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/meta"
)

// Store is the persistence surface the service needs.
type Store interface {
	MappingsByTenant(ctx context.Context, tenantID uuid.UUID) (map[ledger.RoleTag]ledger.AccountTypeMapping, error)
	AccountByID(ctx context.Context, tenantID, accountID uuid.UUID) (ledger.LedgerAccount, error)
	SaveMapping(ctx context.Context, m ledger.AccountTypeMapping) error
}

// SetInput assigns an account to a role for a tenant.
type SetInput struct {
	TenantID  uuid.UUID
	Role      ledger.RoleTag
	AccountID uuid.UUID
	Config    meta.Metadata
	Actor     string
}

// Service manages role mappings.
type Service interface {
	Set(ctx context.Context, in SetInput) (ledger.AccountTypeMapping, error)
	Deactivate(ctx context.Context, tenantID uuid.UUID, role ledger.RoleTag, actor string) error
	List(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountTypeMapping, error)
	Roles() []dictionary.RoleDef
}

type service struct {
	store Store
	rec   audit.Recorder
	log   *slog.Logger
}

// New constructs the mapping service.
func New(store Store, rec audit.Recorder, logger *slog.Logger) Service {
	return &service{store: store, rec: rec, log: logger}
}

func (s *service) Set(ctx context.Context, in SetInput) (ledger.AccountTypeMapping, error) {
	if in.TenantID == uuid.Nil || in.AccountID == uuid.Nil {
		return ledger.AccountTypeMapping{}, errs.ErrInvalid
	}
	def, ok := dictionary.Lookup(in.Role)
	if !ok {
		return ledger.AccountTypeMapping{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "role", Detail: string(in.Role)}
	}
	if err := in.Config.Validate(); err != nil {
		return ledger.AccountTypeMapping{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "config", Detail: err.Error()}
	}

	acc, err := s.store.AccountByID(ctx, in.TenantID, in.AccountID)
	if err != nil {
		return ledger.AccountTypeMapping{}, err
	}
	if !acc.Active {
		return ledger.AccountTypeMapping{}, fmt.Errorf("account %s: %w", acc.Code, errs.ErrInactiveAccount)
	}
	if acc.Nature != def.Nature {
		return ledger.AccountTypeMapping{}, &errs.MappingError{
			Sentinel:       errs.ErrInvalidMapping,
			Role:           string(in.Role),
			AccountCode:    acc.Code,
			ExpectedNature: string(def.Nature),
			ActualNature:   string(acc.Nature),
		}
	}

	existing, err := s.store.MappingsByTenant(ctx, in.TenantID)
	if err != nil {
		return ledger.AccountTypeMapping{}, err
	}
	m := ledger.AccountTypeMapping{
		ID:        uuid.New(),
		TenantID:  in.TenantID,
		Role:      in.Role,
		AccountID: in.AccountID,
		Config:    in.Config.Clone(),
		Active:    true,
	}
	if prev, ok := existing[in.Role]; ok {
		m.ID = prev.ID
	}
	if err := s.store.SaveMapping(ctx, m); err != nil {
		return ledger.AccountTypeMapping{}, err
	}

	s.rec.Log(audit.New(in.TenantID, "mapping", "set", m.ID, string(in.Role)+" -> "+acc.Code, in.Actor, nil))
	return m, nil
}

func (s *service) Deactivate(ctx context.Context, tenantID uuid.UUID, role ledger.RoleTag, actor string) error {
	if tenantID == uuid.Nil {
		return errs.ErrInvalid
	}
	existing, err := s.store.MappingsByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	m, ok := existing[role]
	if !ok {
		return fmt.Errorf("role %s: %w", role, errs.ErrNotFound)
	}
	if !m.Active {
		return nil
	}
	m.Active = false
	if err := s.store.SaveMapping(ctx, m); err != nil {
		return err
	}
	s.rec.Log(audit.New(tenantID, "mapping", "deactivate", m.ID, string(role), actor, nil))
	return nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountTypeMapping, error) {
	if tenantID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	byRole, err := s.store.MappingsByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.AccountTypeMapping, 0, len(byRole))
	for _, m := range byRole {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

// Roles lists every role a tenant can map, so callers can render the
// assignment surface without knowing the dictionary package.
func (s *service) Roles() []dictionary.RoleDef {
	defs := dictionary.Roles()
	sort.Slice(defs, func(i, j int) bool { return defs[i].Tag < defs[j].Tag })
	return defs
}
