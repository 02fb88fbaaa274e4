package mapping_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/meta"
	"github.com/openbooks/ledger/internal/service/mapping"
	"github.com/openbooks/ledger/internal/storage/memory"
)

func newSvc(t *testing.T) (*memory.Store, mapping.Service, uuid.UUID) {
	t.Helper()
	store := memory.New()
	tenant := uuid.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return store, mapping.New(store, audit.Discard{}, logger), tenant
}

func seedAccount(store *memory.Store, tenant uuid.UUID, code string, nature ledger.Nature, active bool) ledger.LedgerAccount {
	acc := ledger.LedgerAccount{
		ID: uuid.New(), TenantID: tenant, Code: code, Name: code, Nature: nature, Active: active,
	}
	store.SeedAccount(acc)
	return acc
}

func TestSet(t *testing.T) {
	store, svc, tenant := newSvc(t)
	acc := seedAccount(store, tenant, "12.10", ledger.NatureAsset, true)

	m, err := svc.Set(context.Background(), mapping.SetInput{
		TenantID: tenant, Role: dictionary.RoleReceivables, AccountID: acc.ID, Actor: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, dictionary.RoleReceivables, m.Role)
	assert.Equal(t, acc.ID, m.AccountID)
	assert.True(t, m.Active)

	// replacing the assignment keeps the mapping id stable
	acc2 := seedAccount(store, tenant, "12.20", ledger.NatureAsset, true)
	m2, err := svc.Set(context.Background(), mapping.SetInput{
		TenantID: tenant, Role: dictionary.RoleReceivables, AccountID: acc2.ID, Actor: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, m.ID, m2.ID)
	assert.Equal(t, acc2.ID, m2.AccountID)
}

func TestSetRejectsNatureMismatch(t *testing.T) {
	store, svc, tenant := newSvc(t)
	// TAX_INPUT must land on an asset account
	acc := seedAccount(store, tenant, "40.10", ledger.NatureLiability, true)

	_, err := svc.Set(context.Background(), mapping.SetInput{
		TenantID: tenant, Role: dictionary.RoleTaxInput, AccountID: acc.ID,
	})
	require.ErrorIs(t, err, errs.ErrInvalidMapping)
	var me *errs.MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "asset", me.ExpectedNature)
	assert.Equal(t, "liability", me.ActualNature)
	assert.Equal(t, "40.10", me.AccountCode)
}

func TestSetRejectsUnknownRoleAndInactiveAccount(t *testing.T) {
	store, svc, tenant := newSvc(t)
	acc := seedAccount(store, tenant, "10.10", ledger.NatureAsset, true)

	_, err := svc.Set(context.Background(), mapping.SetInput{
		TenantID: tenant, Role: "NOT_A_ROLE", AccountID: acc.ID,
	})
	require.ErrorIs(t, err, errs.ErrInvalid)

	inactive := seedAccount(store, tenant, "10.99", ledger.NatureAsset, false)
	_, err = svc.Set(context.Background(), mapping.SetInput{
		TenantID: tenant, Role: dictionary.RoleCash, AccountID: inactive.ID,
	})
	require.ErrorIs(t, err, errs.ErrInactiveAccount)
}

func TestSetRejectsForeignAccount(t *testing.T) {
	store, svc, tenant := newSvc(t)
	other := uuid.New()
	acc := seedAccount(store, other, "10.10", ledger.NatureAsset, true)

	_, err := svc.Set(context.Background(), mapping.SetInput{
		TenantID: tenant, Role: dictionary.RoleCash, AccountID: acc.ID,
	})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeactivateAndList(t *testing.T) {
	store, svc, tenant := newSvc(t)
	cash := seedAccount(store, tenant, "10.10", ledger.NatureAsset, true)
	bank := seedAccount(store, tenant, "10.20", ledger.NatureAsset, true)
	ctx := context.Background()

	_, err := svc.Set(ctx, mapping.SetInput{TenantID: tenant, Role: dictionary.RoleCash, AccountID: cash.ID})
	require.NoError(t, err)
	_, err = svc.Set(ctx, mapping.SetInput{TenantID: tenant, Role: dictionary.RoleBank, AccountID: bank.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, tenant, dictionary.RoleCash, "admin"))
	require.ErrorIs(t, svc.Deactivate(ctx, tenant, dictionary.RoleReceivables, "admin"), errs.ErrNotFound)

	list, err := svc.List(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, dictionary.RoleBank, list[0].Role)
	assert.True(t, list[0].Active)
	assert.Equal(t, dictionary.RoleCash, list[1].Role)
	assert.False(t, list[1].Active)
}

func TestSetRejectsOversizedConfig(t *testing.T) {
	store, svc, tenant := newSvc(t)
	acc := seedAccount(store, tenant, "12.10", ledger.NatureAsset, true)

	cfg := meta.Metadata{"note": strings.Repeat("x", 300)}
	_, err := svc.Set(context.Background(), mapping.SetInput{
		TenantID: tenant, Role: dictionary.RoleReceivables, AccountID: acc.ID, Config: cfg, Actor: "admin",
	})
	require.ErrorIs(t, err, errs.ErrInvalid)

	var fe *errs.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "config", fe.Field)
}

func TestRoles(t *testing.T) {
	_, svc, _ := newSvc(t)

	defs := svc.Roles()
	require.NotEmpty(t, defs)
	assert.True(t, sort.SliceIsSorted(defs, func(i, j int) bool { return defs[i].Tag < defs[j].Tag }))

	tags := make(map[ledger.RoleTag]bool, len(defs))
	for _, def := range defs {
		assert.NotEmpty(t, def.Label, "role %s", def.Tag)
		assert.NotEmpty(t, def.Nature, "role %s", def.Tag)
		tags[def.Tag] = true
	}
	assert.True(t, tags[dictionary.RoleReceivables])
	assert.True(t, tags[dictionary.RoleCash])
}
