package memory

import (
	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/service/catalog"
	"github.com/openbooks/ledger/internal/service/entry"
	"github.com/openbooks/ledger/internal/service/mapping"
)

// Compile-time interface assertions documenting what Store and Tx satisfy.
var (
	_ entry.Store   = (*Store)(nil)
	_ entry.Tx      = (*Tx)(nil)
	_ mapping.Store = (*Store)(nil)
	_ catalog.Store = (*Store)(nil)
	_ audit.Sink    = (*Store)(nil)
)
