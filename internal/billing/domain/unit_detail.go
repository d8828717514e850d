package billing

import (
	"sort"

	masterdata "gestor-energia/internal/masterdata/domain"
)

// CompetenceCost is one competence slice of a unit's spend history.
type CompetenceCost struct {
	CompetenceID string  `json:"competenciaId"`
	Label        string  `json:"label"`
	Real         float64 `json:"real"`
	Estimated    float64 `json:"estimado"`
	HasEstimate  bool    `json:"hasEstimate"`
}

// ConsumptionTotals aggregates distributor-measured quantities for a unit.
type ConsumptionTotals struct {
	ConsumptionMWh    float64 `json:"consumoMWh"`
	ReactiveKWh       float64 `json:"reativoKWh"`
	ReactiveValue     float64 `json:"reativoValor"`
	DemandExcessKW    float64 `json:"demandaUltrKW"`
	DemandExcessValue float64 `json:"demandaUltrValor"`
}

// UnitDetail is the per-unit drill-down view backing the unit page: cost
// composition by expense type, cost history per competence and summed
// distributor measurements.
type UnitDetail struct {
	Unit        masterdata.Unit   `json:"unit"`
	TotalReal   float64           `json:"totalReal"`
	CostByType  []ChartPoint      `json:"custoPorTipo"`
	History     []CompetenceCost  `json:"history"`
	Consumption ConsumptionTotals `json:"consumption"`
}

// ComposeUnitDetail projects the groups belonging to one unit into its
// drill-down view. History is ordered chronologically; expenses whose
// effective competence is not registered are kept under their stored
// competence identifier with a bare label.
func ComposeUnitDetail(unit masterdata.Unit, competences []Competence, groups []Group) UnitDetail {
	detail := UnitDetail{
		Unit:       unit,
		CostByType: []ChartPoint{},
		History:    []CompetenceCost{},
	}

	competenceByID := make(map[string]Competence, len(competences))
	for _, competence := range competences {
		competenceByID[competence.ID] = competence
	}

	byType := newChartAccumulator()
	for _, group := range groups {
		if group.Key.UnitID != unit.ID {
			continue
		}
		detail.TotalReal += group.TotalReal

		cost := CompetenceCost{
			CompetenceID: group.Key.CompetenceID,
			Label:        group.Key.CompetenceID,
			Real:         group.TotalReal,
		}
		if competence, ok := competenceByID[group.Key.CompetenceID]; ok {
			cost.Label = competence.Label()
		}
		if group.HasEstimate() {
			cost.Estimated = group.EstimateValue()
			cost.HasEstimate = true
		}
		detail.History = append(detail.History, cost)

		for _, expense := range group.Expenses {
			byType.add(typeLabel(expense.Type), expense.Value)
			if d := expense.DistributorDetail; d != nil {
				detail.Consumption.ConsumptionMWh += d.ConsumptionMWh
				detail.Consumption.ReactiveKWh += d.ReactiveKWh
				detail.Consumption.ReactiveValue += d.ReactiveValue
				detail.Consumption.DemandExcessKW += d.DemandExcessKW
				detail.Consumption.DemandExcessValue += d.DemandExcessValue
			}
		}
	}
	detail.CostByType = byType.points()

	sort.SliceStable(detail.History, func(i, j int) bool {
		a, aOK := competenceByID[detail.History[i].CompetenceID]
		b, bOK := competenceByID[detail.History[j].CompetenceID]
		if aOK != bOK {
			return bOK
		}
		if !aOK {
			return detail.History[i].CompetenceID < detail.History[j].CompetenceID
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})

	return detail
}
