package backtest

import "sort"

// Summary averages monthly metrics. Each accuracy is the mean over months
// that had at least one row in its denominator, so a month with no critical
// rows does not drag the critical mean down.
type Summary struct {
	Months int

	MeanRowMatchRate        float64
	MeanCategoryAccuracy    float64
	MeanSubcategoryAccuracy float64
	MeanPropertyAccuracy    float64
	MeanCriticalAccuracy    float64
	MeanFullAccuracy        float64
	TotalFinancialImpact    float64
	TotalMatchedRows        int
	TotalTruthRows          int
}

// Summarize aggregates per-month metrics into overall means.
func Summarize(monthly []*Metrics) Summary {
	summary := Summary{Months: len(monthly)}

	var matchMonths, categoryMonths, subcategoryMonths, propertyMonths, criticalMonths, fullMonths int
	for _, m := range monthly {
		summary.TotalTruthRows += m.TruthRows
		summary.TotalMatchedRows += m.MatchedRows
		summary.TotalFinancialImpact += m.FinancialImpact

		if m.TruthRows > 0 {
			summary.MeanRowMatchRate += m.RowMatchRate()
			matchMonths++
		}
		if m.CategoryTotal > 0 {
			summary.MeanCategoryAccuracy += m.CategoryAccuracy()
			categoryMonths++
		}
		if m.MatchedRows > 0 {
			summary.MeanSubcategoryAccuracy += m.SubcategoryAccuracy()
			subcategoryMonths++
		}
		if m.PropertyTotal > 0 {
			summary.MeanPropertyAccuracy += m.PropertyAccuracy()
			propertyMonths++
		}
		if m.CriticalTotal > 0 {
			summary.MeanCriticalAccuracy += m.CriticalAccuracy()
			criticalMonths++
		}
		if m.MatchedRows > 0 {
			summary.MeanFullAccuracy += m.FullAccuracy()
			fullMonths++
		}
	}

	summary.MeanRowMatchRate = mean(summary.MeanRowMatchRate, matchMonths)
	summary.MeanCategoryAccuracy = mean(summary.MeanCategoryAccuracy, categoryMonths)
	summary.MeanSubcategoryAccuracy = mean(summary.MeanSubcategoryAccuracy, subcategoryMonths)
	summary.MeanPropertyAccuracy = mean(summary.MeanPropertyAccuracy, propertyMonths)
	summary.MeanCriticalAccuracy = mean(summary.MeanCriticalAccuracy, criticalMonths)
	summary.MeanFullAccuracy = mean(summary.MeanFullAccuracy, fullMonths)
	return summary
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// WorstConfusions returns the most frequent (truth, predicted) category pairs
// that disagree, largest first, capped at limit.
type Confusion struct {
	Truth     string
	Predicted string
	Count     int
}

func WorstConfusions(monthly []*Metrics, limit int) []Confusion {
	counts := make(map[[2]string]int)
	for _, m := range monthly {
		for truth, row := range m.Confusion {
			for predicted, n := range row {
				if predicted != truth {
					counts[[2]string{truth, predicted}] += n
				}
			}
		}
	}

	confusions := make([]Confusion, 0, len(counts))
	for pair, n := range counts {
		confusions = append(confusions, Confusion{Truth: pair[0], Predicted: pair[1], Count: n})
	}
	sort.Slice(confusions, func(i, j int) bool {
		if confusions[i].Count != confusions[j].Count {
			return confusions[i].Count > confusions[j].Count
		}
		if confusions[i].Truth != confusions[j].Truth {
			return confusions[i].Truth < confusions[j].Truth
		}
		return confusions[i].Predicted < confusions[j].Predicted
	})
	if limit > 0 && len(confusions) > limit {
		confusions = confusions[:limit]
	}
	return confusions
}
