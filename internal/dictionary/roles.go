// Package dictionary holds the fixed, tenant-independent tables the engine and
// the mapping service share: known role tags with their expected account
// nature, the per-category invariant guards, and the correlative series codes.
package dictionary

import "github.com/openbooks/ledger/internal/ledger"

// Role tags known to the engine. Tenants map each tag they use to one concrete
// account; tags a tenant never references simply stay unmapped.
const (
	RoleCash               ledger.RoleTag = "CASH"
	RoleBank               ledger.RoleTag = "BANK"
	RoleReceivables        ledger.RoleTag = "RECEIVABLES"
	RolePayables           ledger.RoleTag = "PAYABLES"
	RoleTaxInput           ledger.RoleTag = "TAX_INPUT"
	RoleTaxOutput          ledger.RoleTag = "TAX_OUTPUT"
	RoleSalesIncome        ledger.RoleTag = "SALES_INCOME"
	RoleOtherIncome        ledger.RoleTag = "OTHER_INCOME"
	RolePurchasesExpense   ledger.RoleTag = "PURCHASES_EXPENSE"
	RolePayrollExpense     ledger.RoleTag = "PAYROLL_EXPENSE"
	RoleSalariesPayable    ledger.RoleTag = "SALARIES_PAYABLE"
	RoleWithholdingPayable ledger.RoleTag = "WITHHOLDING_PAYABLE"
	RoleDetraction         ledger.RoleTag = "DETRACTION"
	RoleOwnerEquity        ledger.RoleTag = "OWNER_EQUITY"
)

// RoleDef describes one curated role tag.
type RoleDef struct {
	Tag    ledger.RoleTag
	Label  string
	Nature ledger.Nature
	// Automated roles are managed by the engine; manual entries touching them
	// draw a confirmation warning.
	Automated bool
	// Treasury roles represent cash or near-cash holdings.
	Treasury bool
}

var curated = map[ledger.RoleTag]RoleDef{
	RoleCash:               {Tag: RoleCash, Label: "Cash on Hand", Nature: ledger.NatureAsset, Treasury: true},
	RoleBank:               {Tag: RoleBank, Label: "Bank", Nature: ledger.NatureAsset, Treasury: true},
	RoleReceivables:        {Tag: RoleReceivables, Label: "Trade Receivables", Nature: ledger.NatureAsset},
	RolePayables:           {Tag: RolePayables, Label: "Trade Payables", Nature: ledger.NatureLiability},
	RoleTaxInput:           {Tag: RoleTaxInput, Label: "Input Tax Credit", Nature: ledger.NatureAsset, Automated: true},
	RoleTaxOutput:          {Tag: RoleTaxOutput, Label: "Output Tax Due", Nature: ledger.NatureLiability, Automated: true},
	RoleSalesIncome:        {Tag: RoleSalesIncome, Label: "Sales Income", Nature: ledger.NatureIncome},
	RoleOtherIncome:        {Tag: RoleOtherIncome, Label: "Other Income", Nature: ledger.NatureIncome},
	RolePurchasesExpense:   {Tag: RolePurchasesExpense, Label: "Purchases", Nature: ledger.NatureExpense},
	RolePayrollExpense:     {Tag: RolePayrollExpense, Label: "Payroll Expense", Nature: ledger.NatureExpense},
	RoleSalariesPayable:    {Tag: RoleSalariesPayable, Label: "Salaries Payable", Nature: ledger.NatureLiability},
	RoleWithholdingPayable: {Tag: RoleWithholdingPayable, Label: "Statutory Withholding", Nature: ledger.NatureLiability, Automated: true},
	RoleDetraction:         {Tag: RoleDetraction, Label: "Detraction Deposits", Nature: ledger.NatureAsset},
	RoleOwnerEquity:        {Tag: RoleOwnerEquity, Label: "Owner Equity", Nature: ledger.NatureEquity},
}

// Lookup returns the curated definition for a role tag.
func Lookup(tag ledger.RoleTag) (RoleDef, bool) {
	def, ok := curated[tag]
	return def, ok
}

// ExpectedNature returns the account nature a mapping for this role must have.
func ExpectedNature(tag ledger.RoleTag) (ledger.Nature, bool) {
	def, ok := curated[tag]
	return def.Nature, ok
}

// IsAutomated reports whether a role is engine-managed.
func IsAutomated(tag ledger.RoleTag) bool { return curated[tag].Automated }

// IsTreasury reports whether a role represents cash or near-cash holdings.
func IsTreasury(tag ledger.RoleTag) bool { return curated[tag].Treasury }

// Roles lists every curated role definition.
func Roles() []RoleDef {
	out := make([]RoleDef, 0, len(curated))
	for _, def := range curated {
		out = append(out, def)
	}
	return out
}

// forbiddenRoles is the fixed table of (event category, role) pairs a rule set
// must never post to. A violation aborts the whole evaluation.
var forbiddenRoles = map[ledger.EventCategory][]ledger.RoleTag{
	ledger.CategorySale:     {RoleTaxInput},
	ledger.CategoryPurchase: {RoleTaxOutput},
	ledger.CategoryCash: {
		RoleTaxInput, RoleTaxOutput,
		RoleSalesIncome, RoleOtherIncome,
		RolePurchasesExpense, RolePayrollExpense,
	},
	ledger.CategoryPayroll: {RoleTaxInput, RoleTaxOutput},
}

// RoleForbidden reports whether a category-level invariant guard forbids
// posting to the role from events of the given category.
func RoleForbidden(cat ledger.EventCategory, tag ledger.RoleTag) bool {
	for _, f := range forbiddenRoles[cat] {
		if f == tag {
			return true
		}
	}
	return false
}

// categoryCodes maps an event category to the 2-digit code used in correlatives.
var categoryCodes = map[ledger.EventCategory]string{
	ledger.CategoryGeneral:  "00",
	ledger.CategorySale:     "01",
	ledger.CategoryPurchase: "02",
	ledger.CategoryCash:     "03",
	ledger.CategoryPayroll:  "04",
	ledger.CategoryClosing:  "05",
}

// CategoryCode returns the 2-digit correlative series code for a category.
func CategoryCode(cat ledger.EventCategory) (string, bool) {
	code, ok := categoryCodes[cat]
	return code, ok
}
