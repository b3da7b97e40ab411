// Package report renders aligned plain-text tables for run summaries and
// record store inspections. Column widths are computed from terminal display
// width, not byte length, so wide runes do not skew the layout.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"rfpsonar/internal/models"
	"rfpsonar/internal/salesforce"
)

// RunTable renders the post-batch summary: one row per jurisdiction in id
// order, followed by a totals row.
func RunTable(results map[string]models.SyncResult) string {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	header := []string{"JURISDICTION", "STATUS", "FOUND", "CREATED", "SKIPPED", "ERRORS", "DURATION"}

	rows := make([][]string, 0, len(results)+1)
	for _, id := range ids {
		r := results[id]
		rows = append(rows, []string{
			id,
			string(r.Status),
			strconv.Itoa(r.Found),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Errors),
			r.Duration.Round(time.Millisecond).String(),
		})
	}

	totals := models.Summarize(results)
	rows = append(rows, []string{
		"TOTAL",
		fmt.Sprintf("%d ok / %d failed", totals.Succeeded, totals.Failed),
		strconv.Itoa(totals.Found),
		strconv.Itoa(totals.Created),
		strconv.Itoa(totals.Skipped),
		strconv.Itoa(totals.Errors),
		"",
	})

	return renderTable(header, rows)
}

// StatusTable renders a store inspection for one jurisdiction: the account's
// opportunity count and its most recent records, newest first.
func StatusTable(jurisdiction string, total int, records []salesforce.OpportunityRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d opportunities on account\n", jurisdiction, total)

	if len(records) == 0 {
		return sb.String()
	}

	header := []string{"NUMBER", "NAME", "CLOSE DATE", "SOURCE", "CREATED"}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			valueOrDash(rec.SolicitationNumber),
			valueOrDash(rec.Name),
			valueOrDash(rec.CloseDate),
			valueOrDash(rec.DataSource),
			shortTimestamp(rec.CreatedDate),
		})
	}

	sb.WriteString("\n")
	sb.WriteString(renderTable(header, rows))

	return sb.String()
}

// renderTable lays out a pipe table with a dashed separator under the
// header. Every cell is padded to its column's widest entry.
func renderTable(header []string, rows [][]string) string {
	widths := columnWidths(header, rows)

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, renderRow(header, widths))
	lines = append(lines, separatorRow(widths))
	for _, row := range rows {
		lines = append(lines, renderRow(row, widths))
	}

	return strings.Join(lines, "\n") + "\n"
}

// columnWidths returns the display width of each column's widest cell,
// with a floor of 3 so separator dashes never collapse.
func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, cell := range header {
		widths[i] = runewidth.StringWidth(cell)
	}

	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	return widths
}

func renderRow(cells []string, widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for i, width := range widths {
		content := ""
		if i < len(cells) {
			content = cells[i]
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		if pad := width - runewidth.StringWidth(content); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

func separatorRow(widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for _, width := range widths {
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("-", width))
		sb.WriteString(" |")
	}

	return sb.String()
}

// valueOrDash substitutes a placeholder for blank cells so stub records,
// which carry no solicitation number, stay readable in the table.
func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

// shortTimestamp trims a store timestamp to its date part.
func shortTimestamp(ts string) string {
	if len(ts) > 10 && ts[10] == 'T' {
		return ts[:10]
	}

	return valueOrDash(ts)
}
