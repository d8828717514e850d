package billing

import (
	"fmt"
	"time"
)

// Competence represents one calendar billing month.
// The (Year, Month) pair is unique across all competences.
type Competence struct {
	ID        string    `json:"id"`
	Year      int       `json:"ano"`
	Month     int       `json:"mes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks competence invariants.
func (c Competence) Validate() error {
	if c.Year <= 0 {
		return ErrInvalidCompetence
	}
	if c.Month < 1 || c.Month > 12 {
		return ErrInvalidCompetence
	}
	return nil
}

// Label renders the display form "MM/YYYY".
func (c Competence) Label() string {
	return fmt.Sprintf("%02d/%d", c.Month, c.Year)
}

// FindCompetenceByMonth returns the competence matching (year, month), or nil.
func FindCompetenceByMonth(competences []Competence, year, month int) *Competence {
	for i := range competences {
		if competences[i].Year == year && competences[i].Month == month {
			return &competences[i]
		}
	}
	return nil
}
