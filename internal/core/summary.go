package core

import "sort"

// CategorySummary is the aggregated total and share for one category.
type CategorySummary struct {
	Category          Category `json:"category"`
	Total             float64  `json:"total"`
	PercentageOfTotal float64  `json:"percentageOfTotal"`
}

// ChartSlice is a CategorySummary with the color the breakdown chart uses.
type ChartSlice struct {
	CategorySummary
	Color string
}

// chartPalette is cycled when there are more categories than colors.
var chartPalette = []string{
	"#0088FE", "#00C49F", "#FFBB28", "#FF8042", "#A28CFF",
	"#FF6B6B", "#4ECDC4", "#C7F464", "#81D8D0",
}

// Aggregate groups records by category and returns one summary per category
// present, sorted by total descending.
//
// Equal totals keep the order in which their category first appears in
// records. An input whose grand total is zero yields an empty result.
func Aggregate(records []ExpenseRecord) []CategorySummary {
	index := make(map[Category]int)
	out := make([]CategorySummary, 0)
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, CategorySummary{Category: r.Category})
		}
		out[i].Total += r.Amount
	}

	var grand float64
	for _, s := range out {
		grand += s.Total
	}
	if grand == 0 {
		return []CategorySummary{}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Total > out[b].Total
	})
	for i := range out {
		out[i].PercentageOfTotal = out[i].Total / grand * 100
	}
	return out
}

// GrandTotal sums the totals of summaries.
func GrandTotal(summaries []CategorySummary) float64 {
	var t float64
	for _, s := range summaries {
		t += s.Total
	}
	return t
}

// ChartSlices assigns palette colors to summaries in order.
func ChartSlices(summaries []CategorySummary) []ChartSlice {
	out := make([]ChartSlice, len(summaries))
	for i, s := range summaries {
		out[i] = ChartSlice{CategorySummary: s, Color: chartPalette[i%len(chartPalette)]}
	}
	return out
}
