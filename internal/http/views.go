package http

import (
	"fmt"
	"html/template"
	"strings"

	"budgetwise/internal/core"
	"budgetwise/internal/services"
)

type recordView struct {
	Date     string
	Category string
	Amount   string
}

// dashboardView is what the templates render.
type dashboardView struct {
	Status        string
	Message       string
	Failed        bool
	Authenticated bool
	UserName      string
	Slices        []core.ChartSlice
	Total         float64
	Chart         template.CSS
	Records       []recordView
	Categories    []core.Category
	Today         string
	Advice        string
}

func newDashboardView(id core.Identity, snap services.Snapshot) dashboardView {
	slices := core.ChartSlices(snap.Summaries())
	v := dashboardView{
		Status:        snap.Status.String(),
		Message:       snap.Message,
		Failed:        snap.Status == services.StatusError,
		Authenticated: id.Authenticated,
		UserName:      id.DisplayName,
		Slices:        slices,
		Total:         core.GrandTotal(snap.Summaries()),
		Chart:         chartGradient(slices),
		Categories:    core.Categories(),
		Today:         core.Today().String(),
	}
	for _, r := range snap.Records {
		v.Records = append(v.Records, recordView{
			Date:     r.Date.Display(),
			Category: string(r.Category),
			Amount:   core.FormatAmount(r.Amount),
		})
	}
	return v
}

// chartGradient draws the pie as a CSS conic-gradient.
func chartGradient(slices []core.ChartSlice) template.CSS {
	if len(slices) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("background: conic-gradient(")
	var from float64
	for i, s := range slices {
		to := from + s.PercentageOfTotal
		if i == len(slices)-1 {
			to = 100
		}
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %.2f%% %.2f%%", s.Color, from, to)
		from = to
	}
	b.WriteString(")")
	return template.CSS(b.String())
}
