package billing

import (
	masterdata "gestor-energia/internal/masterdata/domain"
)

const (
	demandPenaltyKind   = "Multa de Demanda"
	reactivePenaltyKind = "Multa de Reativo"
)

// ReportRow summarizes one free-market unit within the reported competence.
type ReportRow struct {
	UnitName  string  `json:"unitName"`
	Real      float64 `json:"real"`
	Estimated float64 `json:"estimado"`
	Savings   float64 `json:"economia"`
}

// PenaltyItem is a single penalty observation attributed to a unit.
type PenaltyItem struct {
	UnitName string  `json:"unitName"`
	Kind     string  `json:"type"`
	Value    float64 `json:"value"`
}

// ReportModel is the structured cost report for one competence. It carries
// no formatting: rendering to a document or mail body is a collaborator
// concern.
type ReportModel struct {
	CompetenceID    string        `json:"competenciaId"`
	CompetenceLabel string        `json:"competenceLabel"`
	TotalExpense    float64       `json:"totalDespesas"`
	TotalSavings    float64       `json:"economia"`
	UnitCount       int           `json:"totalUnidades"`
	Rows            []ReportRow   `json:"analysisPerUnit"`
	Penalties       []PenaltyItem `json:"penalties"`
}

// ComposeReport builds the cost report for a single competence from the same
// grouping pass that feeds the dashboard projection, so the two always agree
// on savings methodology: a free-market group with a recorded estimate
// contributes estimated minus real exactly once, a group without one
// contributes nothing.
//
// The expense total spans every in-scope unit, regulated ones included;
// rows and savings cover free-market units only. Penalty items are collected
// per expense with a non-zero demand-excess or reactive penalty value.
func ComposeReport(competenceID string, units []masterdata.Unit, competences []Competence, groups []Group) (ReportModel, error) {
	if competenceID == "" {
		return ReportModel{}, ErrCompetenceRequired
	}

	model := ReportModel{
		CompetenceID:    competenceID,
		CompetenceLabel: competenceID,
		UnitCount:       len(units),
		Rows:            []ReportRow{},
		Penalties:       []PenaltyItem{},
	}
	for _, competence := range competences {
		if competence.ID == competenceID {
			model.CompetenceLabel = competence.Label()
			break
		}
	}

	unitByID := make(map[string]masterdata.Unit, len(units))
	for _, unit := range units {
		unitByID[unit.ID] = unit
	}

	for _, group := range groups {
		if group.Key.CompetenceID != competenceID {
			continue
		}
		model.TotalExpense += group.TotalReal

		unit, known := unitByID[group.Key.UnitID]
		unitName := unknownUnitLabel
		if known {
			unitName = unit.Name
		}

		for _, expense := range group.Expenses {
			if detail := expense.DistributorDetail; detail != nil {
				if detail.DemandExcessValue > 0 {
					model.Penalties = append(model.Penalties, PenaltyItem{UnitName: unitName, Kind: demandPenaltyKind, Value: detail.DemandExcessValue})
				}
				if detail.ReactiveValue > 0 {
					model.Penalties = append(model.Penalties, PenaltyItem{UnitName: unitName, Kind: reactivePenaltyKind, Value: detail.ReactiveValue})
				}
			}
		}

		if !known || unit.MarketType != masterdata.MarketFree {
			continue
		}
		row := ReportRow{UnitName: unitName, Real: group.TotalReal, Estimated: group.EstimateValue()}
		if group.HasEstimate() {
			row.Savings = group.EstimateValue() - group.TotalReal
		}
		model.TotalSavings += row.Savings
		model.Rows = append(model.Rows, row)
	}

	return model, nil
}
