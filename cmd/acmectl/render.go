package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Width(14)
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	cellStyle = lipgloss.NewStyle().PaddingRight(2)
)

func printHeading(w io.Writer, title string) {
	fmt.Fprintln(w, headingStyle.Render(title))
}

func printField(w io.Writer, label string, value any) {
	fmt.Fprintln(w, labelStyle.Render(label)+fmt.Sprint(value))
}

// printAmount shows wei next to its ether value.
func printAmount(w io.Writer, label string, wei decimal.Decimal) {
	printField(w, label, fmt.Sprintf("%s wei (%s ether)", wei, domain.FormatEther(wei)))
}

// printTable renders rows in left-aligned columns sized to their widest cell.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = cellStyle.Width(widths[i] + 2).Render(style.Render(cell))
		}
		return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
	}

	fmt.Fprintln(w, line(headers, headingStyle))
	for _, row := range rows {
		fmt.Fprintln(w, line(row, lipgloss.NewStyle()))
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, labelStyle.UnsetWidth().Render("(none)"))
	}
}

func printOrder(w io.Writer, o domain.Order) {
	printHeading(w, fmt.Sprintf("Order %d", o.ID))
	printField(w, "status", o.Status)
	printField(w, "item", o.ItemID)
	printField(w, "quantity", o.Quantity)
	printField(w, "manager", o.Manager)
	printField(w, "customer", o.Customer)
	printAmount(w, "escrowed", o.Escrowed)
	printField(w, "placed", o.PlacedAt.Format("2006-01-02 15:04:05 MST"))
	if o.SettledAt != nil {
		printField(w, "settled", o.SettledAt.Format("2006-01-02 15:04:05 MST"))
	}
}

func printEvent(w io.Writer, ev domain.OrderPlaced) {
	fmt.Fprintf(w, "%s order %d: %s ordered %d of item %d from %s, escrowed %s ether\n",
		headingStyle.Render(ev.Type()), ev.OrderID, ev.Customer, ev.Quantity, ev.ItemID,
		ev.Manager, domain.FormatEther(ev.Escrowed))
}
