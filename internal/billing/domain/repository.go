package billing

import "context"

// ExpenseFilter narrows expense listings. Zero values mean no restriction.
// CompetenceID filters on the stored competence only; effective-competence
// filtering happens in the domain via FilterByCompetence.
type ExpenseFilter struct {
	UnitIDs      []string
	CompetenceID string
	Type         ExpenseType
}

// ExpenseRepository persists expenses.
type ExpenseRepository interface {
	Get(ctx context.Context, id string) (*Expense, error)
	List(ctx context.Context, filter ExpenseFilter) ([]Expense, error)
	Create(ctx context.Context, expense *Expense) error
	Update(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, id string) error
	DeleteByUnit(ctx context.Context, unitID string) error
	CountByStoredCompetence(ctx context.Context, competenceID string) (int, error)
}

// CompetenceRepository persists billing competences.
type CompetenceRepository interface {
	Get(ctx context.Context, id string) (*Competence, error)
	FindByMonth(ctx context.Context, year, month int) (*Competence, error)
	List(ctx context.Context) ([]Competence, error)
	Create(ctx context.Context, competence *Competence) error
	Delete(ctx context.Context, id string) error
}

// EstimateRepository persists per-unit, per-competence cost estimates.
type EstimateRepository interface {
	List(ctx context.Context) ([]Estimate, error)
	ListByCompetence(ctx context.Context, competenceID string) ([]Estimate, error)
	Upsert(ctx context.Context, estimates []Estimate) error
}
