package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")

	// Engine evaluation failures.
	ErrEventNotFound    = errors.New("event_not_found")
	ErrNoActiveRules    = errors.New("no_active_rules")
	ErrAccountNotMapped = errors.New("account_not_mapped")
	// ErrInvalidMapping covers nature mismatches and category guard violations.
	ErrInvalidMapping   = errors.New("invalid_mapping")
	ErrInactiveAccount  = errors.New("inactive_account")
	ErrUnbalanced       = errors.New("unbalanced")

	// Lifecycle failures.
	ErrPeriodClosed         = errors.New("period_closed")
	ErrConfirmationRequired = errors.New("confirmation_required")
	// ErrImmutableEntry indicates an edit attempted on a posted entry.
	ErrImmutableEntry    = errors.New("immutable_entry")
	ErrAlreadyReversed   = errors.New("already_reversed")
	ErrDependentDocument = errors.New("dependent_document_exists")
)
