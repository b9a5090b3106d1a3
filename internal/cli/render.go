package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/service"
	"github.com/Veraticus/mosaic-money/internal/specialist"
	"github.com/charmbracelet/lipgloss"
)

// SubcategoryNamer resolves subcategory ids for display.
type SubcategoryNamer func(id int64) string

// FormatDecision colors a decision: green for Categorized, yellow for
// NeedsReview.
func FormatDecision(decision model.Decision) string {
	if decision == model.DecisionCategorized {
		return SuccessStyle.Render(SuccessIcon + " " + string(decision))
	}
	return WarningStyle.Render(ReviewIcon + " " + string(decision))
}

// FormatSubcategory renders an optional subcategory id.
func FormatSubcategory(id *int64, name SubcategoryNamer) string {
	if id == nil {
		return SubtleStyle.Render("none")
	}
	if name != nil {
		if n := name(*id); n != "" {
			return fmt.Sprintf("%s (#%d)", n, *id)
		}
	}
	return fmt.Sprintf("#%d", *id)
}

// RenderOutcome renders one audited outcome with its stage rows.
func RenderOutcome(outcome model.ClassificationOutcome, name SubcategoryNamer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  confidence %.4f\n",
		FormatDecision(outcome.Decision),
		BoldStyle.Render(outcome.ReasonCode),
		outcome.FinalConfidence)
	fmt.Fprintf(&b, "Proposed: %s\n", FormatSubcategory(outcome.ProposedSubcategoryID, name))
	fmt.Fprintf(&b, "Review status: %s\n", outcome.ReviewStatus)
	fmt.Fprintf(&b, "%s\n", outcome.Rationale)
	if outcome.AgentNote != "" {
		fmt.Fprintf(&b, "%s\n", SubtleStyle.Render("Agent note: "+outcome.AgentNote))
	}

	if len(outcome.Stages) > 0 {
		rows := make([][]string, 0, len(outcome.Stages))
		for _, stage := range outcome.Stages {
			escalated := ""
			if stage.EscalatedToNextStage {
				escalated = "→"
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", stage.StageOrder),
				stage.Stage.String(),
				stage.RationaleCode,
				fmt.Sprintf("%.4f", stage.Confidence),
				FormatSubcategory(stage.ProposedSubcategoryID, name),
				escalated,
			})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable([]string{"#", "Stage", "Code", "Confidence", "Proposed", ""}, rows))
	}

	title := fmt.Sprintf("Outcome %s  %s", outcome.ID, outcome.CreatedAt.Format("2006-01-02 15:04:05"))
	return RenderBox(title, strings.TrimRight(b.String(), "\n"))
}

// RenderTable lays out rows under a bold header.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range headers {
			if i < len(row) {
				widths[i] = max(widths[i], lipgloss.Width(row[i]))
			}
		}
	}

	render := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(headers))
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	lines := []string{render(headers, TableHeaderStyle)}
	for _, row := range rows {
		lines = append(lines, render(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderStats summarizes a batch run.
func RenderStats(stats service.BatchStats) string {
	lines := []string{
		fmt.Sprintf("Transactions: %d", stats.Total),
		SuccessStyle.Render(fmt.Sprintf("Categorized:  %d", stats.Categorized)),
		WarningStyle.Render(fmt.Sprintf("Needs review: %d", stats.NeedsReview)),
	}
	if stats.Failed > 0 {
		lines = append(lines, ErrorStyle.Render(fmt.Sprintf("Failed:       %d", stats.Failed)))
	}
	lines = append(lines, SubtleStyle.Render(fmt.Sprintf("Took %s", stats.Duration.Round(time.Millisecond))))
	return RenderBox(ChartIcon+" Classification summary", strings.Join(lines, "\n"))
}

// RenderLanes lists the specialist lane registry.
func RenderLanes(lanes []specialist.Lane) string {
	rows := make([][]string, 0, len(lanes))
	for _, lane := range lanes {
		rows = append(rows, []string{
			string(lane.Key),
			lane.SpecialistID,
			yesNo(lane.Enabled),
			yesNo(lane.AllowSemantic),
			yesNo(lane.AllowFallback),
		})
	}
	return RenderTable([]string{"Lane", "Specialist", "Enabled", "Semantic", "Fallback"}, rows)
}

func yesNo(b bool) string {
	if b {
		return SuccessStyle.Render("yes")
	}
	return SubtleStyle.Render("no")
}
