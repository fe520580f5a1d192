// Package render turns scoring output into styled terminal text.
package render

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/omr-tools/markwise/internal/evaluation"
	"github.com/omr-tools/markwise/internal/i18n"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numStyle     = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	summaryStyle = lipgloss.NewStyle().Bold(true)
)

// ExplanationTable renders the per-question scoring trace as a bordered
// table with localized headers. Returns "" for an empty trace.
func ExplanationTable(ctx context.Context, rows []evaluation.ExplainRow) string {
	if len(rows) == 0 {
		return ""
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			// Delta, Score, and Section Streak are numeric columns.
			if col == 4 || col == 5 || col == 7 {
				return numStyle
			}
			return cellStyle
		}).
		Headers(
			i18n.T(ctx, "ColQuestion"),
			i18n.T(ctx, "ColMarked"),
			i18n.T(ctx, "ColCorrect"),
			i18n.T(ctx, "ColVerdict"),
			i18n.T(ctx, "ColDelta"),
			i18n.T(ctx, "ColScore"),
			i18n.T(ctx, "ColSection"),
			i18n.T(ctx, "ColStreak"),
		)

	for _, r := range rows {
		t.Row(
			r.Question,
			r.Marked,
			r.Correct,
			r.Verdict,
			fmt.Sprintf("%.2f", r.Delta),
			fmt.Sprintf("%.2f", r.Score),
			r.Section,
			strconv.Itoa(r.Streak),
		)
	}

	return t.String()
}

// ScoreSummary renders the final score line for one response file.
func ScoreSummary(ctx context.Context, fileID string, score float64) string {
	return summaryStyle.Render(i18n.Td(ctx, "ScoreSummary", map[string]any{
		"FileID": fileID,
		"Score":  fmt.Sprintf("%.2f", score),
	}))
}

// BatchSummary renders the sheets-scored count line.
func BatchSummary(ctx context.Context, count int) string {
	return i18n.Tp(ctx, "SheetsScored", count)
}
