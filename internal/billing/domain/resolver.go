package billing

// ResolveEffectiveCompetence determines the billing period an expense is
// attributed to in aggregate views.
//
// Non-encargo expenses keep their stored competence id. Encargo expenses
// belong to the calendar month of their due date: the due date is decomposed
// with UTC accessors (due dates are stored as UTC midnight, local-time
// decomposition would drift a day near month boundaries) and matched against
// the known competences. When no competence exists for that month the stored
// id is returned and fallback is true; callers surface that condition through
// a counter or log, the computation itself carries on.
func ResolveEffectiveCompetence(expense Expense, competences []Competence) (string, bool) {
	if expense.Type != ExpenseCharge {
		return expense.CompetenceID, false
	}
	due := expense.DueDate.UTC()
	if match := FindCompetenceByMonth(competences, due.Year(), int(due.Month())); match != nil {
		return match.ID, false
	}
	return expense.CompetenceID, true
}

// FilterByCompetence returns the expenses attributed to the given competence
// under effective-period resolution. Membership follows the resolver exactly,
// so an encargo expense that fell back to its stored competence is found when
// filtering by that competence.
func FilterByCompetence(expenses []Expense, competences []Competence, competenceID string) []Expense {
	filtered := make([]Expense, 0, len(expenses))
	for _, expense := range expenses {
		effective, _ := ResolveEffectiveCompetence(expense, competences)
		if effective == competenceID {
			filtered = append(filtered, expense)
		}
	}
	return filtered
}
