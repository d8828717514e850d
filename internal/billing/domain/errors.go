package billing

import "errors"

var (
	ErrEmptyUnitID        = errors.New("billing: empty unit id")
	ErrCompetenceRequired = errors.New("billing: competence id required")
	ErrInvalidCompetence  = errors.New("billing: invalid competence")
	ErrCompetenceExists   = errors.New("billing: competence already exists")
	ErrCompetenceInUse    = errors.New("billing: competence has expenses")
	ErrCompetenceNotFound = errors.New("billing: competence not found")
	ErrInvalidExpenseType = errors.New("billing: invalid expense type")
	ErrNegativeValue      = errors.New("billing: negative value")
	ErrInvalidDueDate     = errors.New("billing: invalid due date")
	ErrExpenseNotFound    = errors.New("billing: expense not found")
)
