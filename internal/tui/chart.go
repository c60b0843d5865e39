package tui

import (
	"fmt"
	"strings"

	"github.com/vsource/hero/internal/model"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

var (
	impressionBarStyle = lipgloss.NewStyle().Foreground(ColorRed).Background(ColorRed)
	clickBarStyle      = lipgloss.NewStyle().Foreground(ColorBlue).Background(ColorBlue)
)

// renderImpressionsChart draws one stacked bar per slide position
// (impressions, then clicks) with a legend on the right.
func renderImpressionsChart(stats []model.SlideStat, width, height int) string {
	legendWidth := 28
	chartWidth := width - legendWidth - 2
	if chartWidth < 10 {
		chartWidth = 10
	}
	barWidth := max(1, min(6, chartWidth/(2*max(1, len(stats)))))

	bc := barchart.New(chartWidth, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)
	for _, st := range stats {
		bc.Push(barchart.BarData{
			Label: fmt.Sprintf("#%d", st.SlideIndex+1),
			Values: []barchart.BarValue{
				{Name: "impressions", Value: float64(st.Impressions), Style: impressionBarStyle},
				{Name: "clicks", Value: float64(st.Clicks), Style: clickBarStyle},
			},
		})
	}
	bc.Draw()

	var legend []string
	for _, st := range stats {
		alt := st.SlideAlt
		if len(alt) > 14 {
			alt = alt[:13] + "…"
		}
		legend = append(legend, fmt.Sprintf("#%d %-14s %s %s",
			st.SlideIndex+1, alt,
			accentStyle.Render(fmt.Sprintf("%4d", st.Impressions)),
			lipgloss.NewStyle().Foreground(ColorBlue).Render(fmt.Sprintf("%3d", st.Clicks))))
	}
	legend = append(legend, helpStyle.Render(strings.Repeat("─", 22)),
		accentStyle.Render("■")+" impressions  "+lipgloss.NewStyle().Foreground(ColorBlue).Render("■")+" clicks")

	return lipgloss.JoinHorizontal(lipgloss.Top, bc.View(), "  ", strings.Join(legend, "\n"))
}
