// Package report renders catalog statistics and run summaries for the
// terminal.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	ioutils "github.com/handiism/gphotos-backup/internal/io"
	"github.com/handiism/gphotos-backup/internal/model"
	"github.com/handiism/gphotos-backup/internal/organize"
)

// maxListedFailures bounds the failure list in a completion report.
const maxListedFailures = 10

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	countStyle = cellStyle.
			Foreground(lipgloss.Color("#95E1A3")).
			Align(lipgloss.Right)

	subtotalStyle = cellStyle.
			Bold(true).
			Foreground(lipgloss.Color("#6C757D"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#95E1A3")).
			Padding(1, 2)
)

// Summary renders the per-month statistics table, newest year first, with
// a subtotal row per year and a total box.
func Summary(s organize.Stats) string {
	var (
		rows      [][]string
		subtotals = make(map[int]bool)
	)

	years := s.SortedYears()
	for i := len(years) - 1; i >= 0; i-- {
		year := years[i]
		for j, month := range s.MonthsOf(year) {
			label := ""
			if j == 0 {
				label = strconv.Itoa(year)
			}
			count := s.Months[model.BucketKey{Year: year, Month: month}]
			rows = append(rows, []string{label, fmt.Sprintf("%02d", month), strconv.Itoa(count)})
		}
		subtotals[len(rows)] = true
		rows = append(rows, []string{"", "subtotal", strconv.Itoa(s.Years[year])})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Year", "Month", "Items").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case subtotals[row]:
				return subtotalStyle
			case col == 2:
				return countStyle
			default:
				return cellStyle
			}
		})

	var b strings.Builder
	b.WriteString(titleStyle.Render("Library statistics"))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"Total: %d photos/videos\n%s",
		s.Total,
		dimStyle.Render(fmt.Sprintf("(unknown date: %d)", s.Unknown)),
	)))
	b.WriteString("\n")
	return b.String()
}

// Completion describes a finished backup run.
type Completion struct {
	Download  model.BatchStatistics
	Organize  model.OrganizeResult
	BackupDir string
	Elapsed   time.Duration
}

// CompletionReport renders the end-of-run report.
func CompletionReport(c Completion) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Backup complete!\n\n")
	fmt.Fprintf(&b, "Download:\n")
	fmt.Fprintf(&b, "  • Downloaded:      %d\n", c.Download.Succeeded)
	fmt.Fprintf(&b, "  • Failed:          %d\n", c.Download.Failed)
	fmt.Fprintf(&b, "  • Already present: %d\n", c.Download.Skipped)
	fmt.Fprintf(&b, "  • Total size:      %s\n\n", ioutils.FormatBytes(c.Download.TotalBytes))
	fmt.Fprintf(&b, "Organize:\n")
	fmt.Fprintf(&b, "  • Moved:           %d\n", c.Organize.Moved)
	fmt.Fprintf(&b, "  • Failed:          %d\n\n", c.Organize.Failed)
	fmt.Fprintf(&b, "Backup directory: %s", c.BackupDir)
	if c.Elapsed > 0 {
		fmt.Fprintf(&b, "\nElapsed: %s", c.Elapsed.Round(time.Second))
	}

	out := boxStyle.Render(b.String()) + "\n"
	if failures := Failures(c.Download.Failures); failures != "" {
		out += failures
	}
	return out
}

// Failures lists failed downloads, at most maxListedFailures of them.
// It returns "" for an empty list.
func Failures(failures []model.Failure) string {
	if len(failures) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("%d download(s) failed:", len(failures))))
	b.WriteString("\n")
	for i, f := range failures {
		if i == maxListedFailures {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ... and %d more", len(failures)-maxListedFailures)))
			b.WriteString("\n")
			break
		}
		name := f.Filename
		if name == "" {
			name = f.ID
		}
		b.WriteString(fmt.Sprintf("  ✗ %s: %s\n", name, f.Reason))
	}
	return b.String()
}

// Albums renders an album listing.
func Albums(albums []model.Album) string {
	rows := make([][]string, 0, len(albums))
	for _, a := range albums {
		title := a.Title
		if title == "" {
			title = dimStyle.Render("(untitled)")
		}
		rows = append(rows, []string{title, strconv.FormatInt(a.ItemsCount, 10), a.ID})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Title", "Items", "ID").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return countStyle
			default:
				return cellStyle
			}
		})

	return titleStyle.Render(fmt.Sprintf("%d album(s)", len(albums))) + "\n" + t.Render() + "\n"
}
