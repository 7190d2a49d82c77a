package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/controller"
)

const helpText = "/ search · ←/→ page · 1-5 jump · s size · c clear filters · m match · r retry · q quit"

// View renders the current view.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	v := m.ctl.View()
	sections := []string{m.renderHeader(v), m.renderSearch(v), m.renderBody(v)}
	sections = append(sections, m.renderPager(v))
	if line := m.renderStatus(); line != "" {
		sections = append(sections, line)
	}
	sections = append(sections, SubtleStyle.Render(helpText))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader(v controller.View) string {
	header := TitleStyle.Render("Grants")
	if v.Mode == controller.MatchedSubset {
		header += " " + MatchStyle.Render("[matched]")
	}
	if f := describeFilters(v.Filters); f != "" {
		header += "  " + LabelStyle.Render(f)
	}
	return header
}

func (m *Model) renderSearch(v controller.View) string {
	if m.searching {
		return LabelStyle.Render("Search: ") + m.search.View()
	}
	if v.QueryText != "" {
		return LabelStyle.Render("Search: ") + v.QueryText
	}
	return SubtleStyle.Render("Press / to search")
}

func (m *Model) renderBody(v controller.View) string {
	switch {
	case v.Loading:
		return InfoStyle.Render(m.spinner.View() + " Loading grants...")
	case v.Err != nil:
		return InfoStyle.Render(ErrorStyle.Render("Error: "+v.Err.Message) + "\n" + SubtleStyle.Render("Press r to retry"))
	case v.Empty:
		return InfoStyle.Render("No grants found.")
	}

	rows := make([]string, 0, len(v.Items))
	for _, g := range v.Items {
		rows = append(rows, renderGrant(g, v.IsSaved(g.ID)))
	}
	return strings.Join(rows, "\n")
}

func (m *Model) renderPager(v controller.View) string {
	summary := fmt.Sprintf("  page %d of %d", v.Page, v.TotalPages)
	if v.TotalItems > 0 {
		summary += printer.Sprintf(" · %d grants", v.TotalItems)
	}
	return PagerStyle.Width(m.width).Render(m.pager.String() + LabelStyle.Render(summary))
}

func (m *Model) renderStatus() string {
	if m.err != nil {
		return ErrorStyle.Render(m.err.Error())
	}
	if m.status != "" {
		return SubtleStyle.Render(m.status)
	}
	return ""
}

// renderGrant formats a single grant row.
func renderGrant(g grantsx.Grant, saved bool) string {
	marker := " "
	if saved {
		marker = SavedStyle.Render("★")
	}

	row := fmt.Sprintf("%s %-*s  %-*s  %-*s  %-*s",
		marker,
		colWidthTitle, truncate(g.Title, colWidthTitle),
		colWidthAgency, truncate(g.AgencyName, colWidthAgency),
		colWidthCity, truncate(g.City, colWidthCity),
		colWidthAmount, formatAmountRange(g.MinAmount, g.MaxAmount),
	)
	if g.MatchPercentage != nil {
		row += "  " + MatchStyle.Render(fmt.Sprintf("%3.0f%%", *g.MatchPercentage))
	}
	return row
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func formatAmountRange(lo, hi float64) string {
	switch {
	case lo == 0 && hi == 0:
		return "amount n/a"
	case lo == 0:
		return "up to " + dollars(hi)
	case hi == 0:
		return "from " + dollars(lo)
	case lo == hi:
		return dollars(lo)
	default:
		return dollars(lo) + "-" + dollars(hi)
	}
}

// dollars formats whole dollars with thousands separators.
func dollars(v float64) string {
	return printer.Sprintf("$%d", int64(math.Round(v)))
}

func describeFilters(f grantsx.FilterSet) string {
	var parts []string
	if f.City != "" {
		parts = append(parts, "city="+f.City)
	}
	if f.AgencyName != "" {
		parts = append(parts, "agency="+f.AgencyName)
	}
	if f.MinAmount.IsSet() {
		parts = append(parts, "min="+f.MinAmount.String())
	}
	if f.MaxAmount.IsSet() {
		parts = append(parts, "max="+f.MaxAmount.String())
	}
	return strings.Join(parts, " ")
}
