package billing

// GroupKey identifies an expense group. It is a structural composite key:
// unit id and effective competence id are kept as separate fields so that no
// separator character inside either identifier can cause collisions.
type GroupKey struct {
	UnitID       string `json:"unidadeId"`
	CompetenceID string `json:"competenciaId"`
}

// Group is the central aggregate of the reconciliation engine: all expenses
// of one unit attributed to one effective competence, with their summed real
// cost and the estimate recorded for the same pair. Groups are derived per
// request and never persisted.
type Group struct {
	Key       GroupKey  `json:"key"`
	Expenses  []Expense `json:"expenses"`
	TotalReal float64   `json:"totalReal"`
	// Estimate is nil when no estimate is recorded for the pair. A recorded
	// zero is a valid estimate and is distinct from absence.
	Estimate *float64 `json:"totalEstimado"`
}

// HasEstimate reports whether an estimate is recorded for the group.
func (g Group) HasEstimate() bool { return g.Estimate != nil }

// EstimateValue returns the recorded estimate, or 0 when absent.
func (g Group) EstimateValue() float64 {
	if g.Estimate == nil {
		return 0
	}
	return *g.Estimate
}

// GroupExpenses partitions expenses into groups keyed by (unit, effective
// competence) and sums each group's real cost. The second return value counts
// encargo expenses that resolved through the fallback path; callers report it
// without interrupting the computation.
//
// The function is pure: it does not mutate its inputs and grouping the same
// snapshot twice yields identical groups. Groups appear in first-seen order.
// Estimate uniqueness per (unit, competence) is assumed, not enforced; if the
// input carries duplicates the last one wins.
func GroupExpenses(expenses []Expense, competences []Competence, estimates []Estimate) ([]Group, int) {
	estimateByKey := make(map[GroupKey]float64, len(estimates))
	for _, estimate := range estimates {
		estimateByKey[GroupKey{UnitID: estimate.UnitID, CompetenceID: estimate.CompetenceID}] = estimate.Value
	}

	groups := make([]Group, 0, len(expenses))
	index := make(map[GroupKey]int, len(expenses))
	fallbacks := 0

	for _, expense := range expenses {
		competenceID, fallback := ResolveEffectiveCompetence(expense, competences)
		if fallback {
			fallbacks++
		}
		key := GroupKey{UnitID: expense.UnitID, CompetenceID: competenceID}
		at, seen := index[key]
		if !seen {
			group := Group{Key: key}
			if value, ok := estimateByKey[key]; ok {
				estimate := value
				group.Estimate = &estimate
			}
			groups = append(groups, group)
			at = len(groups) - 1
			index[key] = at
		}
		groups[at].Expenses = append(groups[at].Expenses, expense)
		groups[at].TotalReal += expense.Value
	}

	return groups, fallbacks
}
