package billing

import "time"

// ExpenseType classifies a billed line item.
type ExpenseType string

const (
	ExpenseRetailer    ExpenseType = "comercializadora"
	ExpenseDistributor ExpenseType = "distribuidora"
	ExpenseCharge      ExpenseType = "encargo"
)

// NormalizeExpenseType validates and normalizes an expense type string.
func NormalizeExpenseType(value string) (ExpenseType, bool) {
	switch ExpenseType(value) {
	case ExpenseRetailer, ExpenseDistributor, ExpenseCharge:
		return ExpenseType(value), true
	default:
		return "", false
	}
}

// DistributorDetail carries consumption and penalty figures from a
// distributor invoice.
type DistributorDetail struct {
	ConsumptionMWh    float64 `json:"consumoMWh"`
	ReactiveKWh       float64 `json:"reativoKWh"`
	ReactiveValue     float64 `json:"reativoValor"`
	DemandExcessKW    float64 `json:"demandaUltrKW"`
	DemandExcessValue float64 `json:"demandaUltrValor"`
}

// Expense represents a single billed line item for a unit.
//
// CompetenceID is the stored billing period; for encargo expenses the
// period the expense is attributed to in aggregate views is derived from
// the due date instead (see ResolveEffectiveCompetence).
type Expense struct {
	ID                string             `json:"id"`
	UnitID            string             `json:"unidadeId"`
	CompetenceID      string             `json:"competenciaId"`
	Type              ExpenseType        `json:"tipoDespesa"`
	ChargeSubtype     string             `json:"subtipoEncargo,omitempty"`
	Value             float64            `json:"valor"`
	DueDate           time.Time          `json:"vencimento"`
	EntryCode         string             `json:"codigoLancamento,omitempty"`
	DistributorDetail *DistributorDetail `json:"detalhesDistribuidora,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Validate checks expense invariants.
func (e Expense) Validate() error {
	if e.UnitID == "" {
		return ErrEmptyUnitID
	}
	if e.CompetenceID == "" {
		return ErrCompetenceRequired
	}
	if _, ok := NormalizeExpenseType(string(e.Type)); !ok {
		return ErrInvalidExpenseType
	}
	if e.Value < 0 {
		return ErrNegativeValue
	}
	if e.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	return nil
}
