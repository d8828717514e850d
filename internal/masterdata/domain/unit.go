package masterdata

import (
	"context"
	"errors"
	"time"
)

// MarketType distinguishes the energy market a unit is enrolled in.
// It is immutable business context: it determines which expense-type rules
// apply and whether the unit participates in savings computation.
type MarketType string

const (
	MarketFree      MarketType = "livre"
	MarketRegulated MarketType = "cativo"
)

// NormalizeMarketType validates and normalizes a market type string.
func NormalizeMarketType(value string) (MarketType, bool) {
	switch MarketType(value) {
	case MarketFree, MarketRegulated:
		return MarketType(value), true
	default:
		return "", false
	}
}

// Unit represents an organizational or physical site under a contract.
type Unit struct {
	ID         string     `json:"id"`
	Name       string     `json:"nome"`
	ContractID string     `json:"contratoId"`
	MarketType MarketType `json:"marketType"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Validate checks unit invariants.
func (u Unit) Validate() error {
	if u.Name == "" {
		return errors.New("unit: empty name")
	}
	if _, ok := NormalizeMarketType(string(u.MarketType)); !ok {
		return errors.New("unit: invalid market type")
	}
	return nil
}

// UnitFilter restricts unit listings.
type UnitFilter struct {
	ContractID string
	MarketType MarketType
}

// UnitRepository manages unit persistence.
type UnitRepository interface {
	Get(ctx context.Context, id string) (*Unit, error)
	GetByName(ctx context.Context, name string) (*Unit, error)
	List(ctx context.Context, filter UnitFilter) ([]Unit, error)
	Create(ctx context.Context, unit *Unit) error
	Update(ctx context.Context, unit *Unit) error
	Delete(ctx context.Context, id string) error
	DetachContract(ctx context.Context, contractID string) error
}
