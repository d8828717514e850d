package masterdata

import (
	"context"
	"errors"
	"time"
)

// Contract groups units under one commercial agreement.
type Contract struct {
	ID        string    `json:"id"`
	Name      string    `json:"nome"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks contract invariants.
func (c Contract) Validate() error {
	if c.Name == "" {
		return errors.New("contract: empty name")
	}
	return nil
}

// ContractRepository manages contract persistence.
type ContractRepository interface {
	Get(ctx context.Context, id string) (*Contract, error)
	List(ctx context.Context) ([]Contract, error)
	ListByIDs(ctx context.Context, ids []string) ([]Contract, error)
	Create(ctx context.Context, contract *Contract) error
	Update(ctx context.Context, contract *Contract) error
	Delete(ctx context.Context, id string) error
}
