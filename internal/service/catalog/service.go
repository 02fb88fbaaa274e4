// Package catalog administers the accounting event catalog and the posting
// rules attached to each event. Guard expressions are parsed at write time so
// a rule with a broken guard never reaches the engine.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/guard"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/meta"
	"github.com/openbooks/ledger/internal/slug"
)

// Store is the persistence surface the service needs.
type Store interface {
	EventByType(ctx context.Context, tenantID uuid.UUID, eventType string) (ledger.AccountingEvent, error)
	EventsByTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountingEvent, error)
	SaveEvent(ctx context.Context, ev ledger.AccountingEvent) error
	RulesByEvent(ctx context.Context, tenantID, eventID uuid.UUID) ([]ledger.AccountingRule, error)
	RuleByID(ctx context.Context, tenantID, ruleID uuid.UUID) (ledger.AccountingRule, error)
	SaveRule(ctx context.Context, r ledger.AccountingRule) error
}

// EventInput registers a business event type.
type EventInput struct {
	TenantID uuid.UUID
	Type     string
	Name     string
	Category ledger.EventCategory
	Actor    string
}

// RuleInput attaches one posting rule to an event.
type RuleInput struct {
	TenantID  uuid.UUID
	EventType string
	Order     int
	Side      ledger.Side
	Role      ledger.RoleTag
	AmountKey string
	Guard     string
	Config    meta.Metadata
	Actor     string
}

// Service manages the event catalog.
type Service interface {
	CreateEvent(ctx context.Context, in EventInput) (ledger.AccountingEvent, error)
	SetEventActive(ctx context.Context, tenantID uuid.UUID, eventType string, active bool, actor string) (ledger.AccountingEvent, error)
	ListEvents(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountingEvent, error)
	AddRule(ctx context.Context, in RuleInput) (ledger.AccountingRule, error)
	SetRuleActive(ctx context.Context, tenantID, ruleID uuid.UUID, active bool, actor string) (ledger.AccountingRule, error)
	ListRules(ctx context.Context, tenantID uuid.UUID, eventType string) ([]ledger.AccountingRule, error)
}

type service struct {
	store Store
	rec   audit.Recorder
	log   *slog.Logger
}

// New constructs the catalog service.
func New(store Store, rec audit.Recorder, logger *slog.Logger) Service {
	return &service{store: store, rec: rec, log: logger}
}

func (s *service) CreateEvent(ctx context.Context, in EventInput) (ledger.AccountingEvent, error) {
	if in.TenantID == uuid.Nil {
		return ledger.AccountingEvent{}, errs.ErrInvalid
	}
	key := slug.Keyify(in.Type)
	if !slug.IsKey(key) {
		return ledger.AccountingEvent{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "type", Detail: in.Type}
	}
	if !validCategory(in.Category) {
		return ledger.AccountingEvent{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "category", Detail: string(in.Category)}
	}

	if _, err := s.store.EventByType(ctx, in.TenantID, key); err == nil {
		return ledger.AccountingEvent{}, fmt.Errorf("event type %s already exists: %w", key, errs.ErrConflict)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return ledger.AccountingEvent{}, err
	}

	ev := ledger.AccountingEvent{
		ID:       uuid.New(),
		TenantID: in.TenantID,
		Type:     key,
		Name:     in.Name,
		Category: in.Category,
		Active:   true,
	}
	if ev.Name == "" {
		ev.Name = ev.Type
	}
	if err := s.store.SaveEvent(ctx, ev); err != nil {
		return ledger.AccountingEvent{}, err
	}
	s.rec.Log(audit.New(in.TenantID, "catalog", "create_event", ev.ID, ev.Type, in.Actor, nil))
	return ev, nil
}

func (s *service) SetEventActive(ctx context.Context, tenantID uuid.UUID, eventType string, active bool, actor string) (ledger.AccountingEvent, error) {
	ev, err := s.store.EventByType(ctx, tenantID, eventType)
	if err != nil {
		return ledger.AccountingEvent{}, err
	}
	if ev.Active == active {
		return ev, nil
	}
	ev.Active = active
	if err := s.store.SaveEvent(ctx, ev); err != nil {
		return ledger.AccountingEvent{}, err
	}
	action := "deactivate_event"
	if active {
		action = "activate_event"
	}
	s.rec.Log(audit.New(tenantID, "catalog", action, ev.ID, ev.Type, actor, nil))
	return ev, nil
}

func (s *service) ListEvents(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountingEvent, error) {
	if tenantID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	events, err := s.store.EventsByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Type < events[j].Type })
	return events, nil
}

func (s *service) AddRule(ctx context.Context, in RuleInput) (ledger.AccountingRule, error) {
	if in.TenantID == uuid.Nil {
		return ledger.AccountingRule{}, errs.ErrInvalid
	}
	ev, err := s.store.EventByType(ctx, in.TenantID, in.EventType)
	if err != nil {
		return ledger.AccountingRule{}, err
	}
	if _, ok := dictionary.Lookup(in.Role); !ok {
		return ledger.AccountingRule{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "role", Detail: string(in.Role)}
	}
	if dictionary.RoleForbidden(ev.Category, in.Role) {
		return ledger.AccountingRule{}, &errs.MappingError{
			Sentinel: errs.ErrInvalidMapping,
			Role:     string(in.Role),
			Category: string(ev.Category),
		}
	}
	if in.Side != ledger.SideDebit && in.Side != ledger.SideCredit {
		return ledger.AccountingRule{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "side", Detail: string(in.Side)}
	}
	if in.AmountKey == "" {
		return ledger.AccountingRule{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "amount_key", Detail: "required"}
	}
	if in.Guard != "" {
		if _, err := guard.Parse(in.Guard); err != nil {
			return ledger.AccountingRule{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "guard", Detail: err.Error()}
		}
	}
	if err := in.Config.Validate(); err != nil {
		return ledger.AccountingRule{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "config", Detail: err.Error()}
	}

	r := ledger.AccountingRule{
		ID:        uuid.New(),
		TenantID:  in.TenantID,
		EventID:   ev.ID,
		Order:     in.Order,
		Side:      in.Side,
		Role:      in.Role,
		AmountKey: in.AmountKey,
		Guard:     in.Guard,
		Config:    in.Config.Clone(),
		Active:    true,
	}
	if err := s.store.SaveRule(ctx, r); err != nil {
		return ledger.AccountingRule{}, err
	}
	s.rec.Log(audit.New(in.TenantID, "catalog", "add_rule", r.ID, fmt.Sprintf("%s %s %s", ev.Type, r.Side, r.Role), in.Actor, nil))
	return r, nil
}

func (s *service) SetRuleActive(ctx context.Context, tenantID, ruleID uuid.UUID, active bool, actor string) (ledger.AccountingRule, error) {
	r, err := s.store.RuleByID(ctx, tenantID, ruleID)
	if err != nil {
		return ledger.AccountingRule{}, err
	}
	if r.Active == active {
		return r, nil
	}
	r.Active = active
	if err := s.store.SaveRule(ctx, r); err != nil {
		return ledger.AccountingRule{}, err
	}
	action := "deactivate_rule"
	if active {
		action = "activate_rule"
	}
	s.rec.Log(audit.New(tenantID, "catalog", action, r.ID, string(r.Role), actor, nil))
	return r, nil
}

func (s *service) ListRules(ctx context.Context, tenantID uuid.UUID, eventType string) ([]ledger.AccountingRule, error) {
	ev, err := s.store.EventByType(ctx, tenantID, eventType)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.RulesByEvent(ctx, tenantID, ev.ID)
	if err != nil {
		return nil, err
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Order < rules[j].Order })
	return rules, nil
}

func validCategory(c ledger.EventCategory) bool {
	_, ok := dictionary.CategoryCode(c)
	return ok
}
