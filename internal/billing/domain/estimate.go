package billing

import "time"

// Estimate declares what a unit's cost would have been under the regulated
// market for one (unit, competence) pair. At most one estimate exists per
// pair; writers upsert, never duplicate.
type Estimate struct {
	ID           string    `json:"id"`
	UnitID       string    `json:"unidadeId"`
	CompetenceID string    `json:"competenciaId"`
	Value        float64   `json:"valor"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
