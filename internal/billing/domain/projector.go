package billing

import (
	"sort"
	"unicode"

	masterdata "gestor-energia/internal/masterdata/domain"
)

// ChartPoint is a single-series chart entry.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ComparisonRow is a two-series chart entry comparing real against estimated
// cost.
type ComparisonRow struct {
	Name      string  `json:"name"`
	Real      float64 `json:"real"`
	Estimated float64 `json:"estimado"`
}

// KPIs are the scalar dashboard indicators.
type KPIs struct {
	TotalExpense float64 `json:"totalDespesas"`
	Savings      float64 `json:"economia"`
}

// Charts holds every chart-ready projection derived from one grouping pass.
type Charts struct {
	ByType           []ChartPoint    `json:"despesasPorTipo"`
	ByUnit           []ChartPoint    `json:"despesasPorUnidade"`
	Opportunities    []ChartPoint    `json:"oportunidadesMelhora"`
	ByMonth          []ChartPoint    `json:"monthlyExpenses"`
	MarketComparison []ComparisonRow `json:"mercadoComparison"`
}

// Projection is the dashboard aggregate consumed by the presentation layer.
type Projection struct {
	KPIs   KPIs   `json:"kpis"`
	Charts Charts `json:"charts"`
}

const unknownUnitLabel = "Desconhecida"

const (
	reactivePenaltyLabel = "Multa Reativo"
	demandPenaltyLabel   = "Multa Demanda"
)

// EmptyProjection returns a projection with every chart present and empty,
// so consumers always receive a consistently shaped object.
func EmptyProjection() Projection {
	return Projection{
		Charts: Charts{
			ByType:           []ChartPoint{},
			ByUnit:           []ChartPoint{},
			Opportunities:    []ChartPoint{},
			ByMonth:          []ChartPoint{},
			MarketComparison: []ComparisonRow{},
		},
	}
}

// Project derives every KPI and chart from one set of groups. When
// competenceID is non-empty the projection is scoped to the groups attributed
// to that competence; the market comparison then lists that competence's
// units, otherwise it rolls totals up per unit across all competences.
//
// Every group with a recorded estimate contributes to the savings KPI exactly
// once, however many expenses it holds. Groups without an estimate do not
// contribute at all; a recorded zero contributes 0 minus the real cost.
func Project(groups []Group, units []masterdata.Unit, competences []Competence, competenceID string) Projection {
	scoped := groups
	if competenceID != "" {
		scoped = make([]Group, 0, len(groups))
		for _, group := range groups {
			if group.Key.CompetenceID == competenceID {
				scoped = append(scoped, group)
			}
		}
	}

	unitByID := make(map[string]masterdata.Unit, len(units))
	for _, unit := range units {
		unitByID[unit.ID] = unit
	}
	competenceByID := make(map[string]Competence, len(competences))
	for _, competence := range competences {
		competenceByID[competence.ID] = competence
	}

	projection := EmptyProjection()

	for _, group := range scoped {
		projection.KPIs.TotalExpense += group.TotalReal
		unit, known := unitByID[group.Key.UnitID]
		if known && unit.MarketType == masterdata.MarketFree && group.HasEstimate() {
			projection.KPIs.Savings += group.EstimateValue() - group.TotalReal
		}
	}

	byType := newChartAccumulator()
	byUnit := newChartAccumulator()
	opportunities := newChartAccumulator()
	for _, group := range scoped {
		unitName := unknownUnitLabel
		if unit, known := unitByID[group.Key.UnitID]; known {
			unitName = unit.Name
		}
		for _, expense := range group.Expenses {
			byType.add(typeLabel(expense.Type), expense.Value)
			byUnit.add(unitName, expense.Value)
			if detail := expense.DistributorDetail; detail != nil {
				opportunities.add(reactivePenaltyLabel, detail.ReactiveValue)
				opportunities.add(demandPenaltyLabel, detail.DemandExcessValue)
			}
		}
	}
	projection.Charts.ByType = byType.points()
	projection.Charts.ByUnit = byUnit.points()
	projection.Charts.Opportunities = opportunities.nonZeroPoints()
	projection.Charts.ByMonth = projectByMonth(scoped, competenceByID)
	projection.Charts.MarketComparison = projectMarketComparison(scoped, unitByID, competenceID != "")

	return projection
}

// projectByMonth sums the real cost per effective competence, labeled
// "MM/YYYY" and sorted chronologically. Groups whose effective competence is
// not registered are skipped; they have no month to be labeled with.
func projectByMonth(scoped []Group, competenceByID map[string]Competence) []ChartPoint {
	type monthTotal struct {
		year, month int
		value       float64
	}
	totals := make(map[string]*monthTotal)
	for _, group := range scoped {
		competence, known := competenceByID[group.Key.CompetenceID]
		if !known {
			continue
		}
		label := competence.Label()
		if _, ok := totals[label]; !ok {
			totals[label] = &monthTotal{year: competence.Year, month: competence.Month}
		}
		totals[label].value += group.TotalReal
	}

	points := make([]ChartPoint, 0, len(totals))
	order := make(map[string]*monthTotal, len(totals))
	for label, total := range totals {
		points = append(points, ChartPoint{Name: label, Value: total.value})
		order[label] = total
	}
	sort.Slice(points, func(i, j int) bool {
		a, b := order[points[i].Name], order[points[j].Name]
		if a.year != b.year {
			return a.year < b.year
		}
		return a.month < b.month
	})
	return points
}

// projectMarketComparison builds the real-vs-estimated rows. With a
// competence filter each free unit of that competence with a positive
// estimate gets a row; without one, real and estimated are first rolled up
// per unit across all its groups. Both views sort by savings magnitude
// (estimated minus real) descending.
func projectMarketComparison(scoped []Group, unitByID map[string]masterdata.Unit, filtered bool) []ComparisonRow {
	rows := make([]ComparisonRow, 0, len(scoped))

	if filtered {
		for _, group := range scoped {
			unit, known := unitByID[group.Key.UnitID]
			if !known || unit.MarketType != masterdata.MarketFree {
				continue
			}
			if group.EstimateValue() <= 0 {
				continue
			}
			rows = append(rows, ComparisonRow{Name: unit.Name, Real: group.TotalReal, Estimated: group.EstimateValue()})
		}
	} else {
		index := make(map[string]int)
		for _, group := range scoped {
			unit, known := unitByID[group.Key.UnitID]
			if !known || unit.MarketType != masterdata.MarketFree {
				continue
			}
			at, seen := index[group.Key.UnitID]
			if !seen {
				rows = append(rows, ComparisonRow{Name: unit.Name})
				at = len(rows) - 1
				index[group.Key.UnitID] = at
			}
			rows[at].Real += group.TotalReal
			rows[at].Estimated += group.EstimateValue()
		}
		kept := rows[:0]
		for _, row := range rows {
			if row.Estimated > 0 {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Estimated-rows[i].Real > rows[j].Estimated-rows[j].Real
	})
	return rows
}

func typeLabel(expenseType ExpenseType) string {
	value := string(expenseType)
	if value == "" {
		return value
	}
	runes := []rune(value)
	return string(unicode.ToUpper(runes[0])) + string(runes[1:])
}

// chartAccumulator sums values per label preserving first-seen order, so
// chart output is deterministic.
type chartAccumulator struct {
	order  []string
	totals map[string]float64
}

func newChartAccumulator() *chartAccumulator {
	return &chartAccumulator{totals: make(map[string]float64)}
}

func (a *chartAccumulator) add(name string, value float64) {
	if _, seen := a.totals[name]; !seen {
		a.order = append(a.order, name)
	}
	a.totals[name] += value
}

func (a *chartAccumulator) points() []ChartPoint {
	points := make([]ChartPoint, 0, len(a.order))
	for _, name := range a.order {
		points = append(points, ChartPoint{Name: name, Value: a.totals[name]})
	}
	return points
}

func (a *chartAccumulator) nonZeroPoints() []ChartPoint {
	points := make([]ChartPoint, 0, len(a.order))
	for _, point := range a.points() {
		if point.Value != 0 {
			points = append(points, point)
		}
	}
	return points
}
