// package formatter renders run summaries for terminal and file output (styled text, JSON, Markdown)
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/remo-imparato/matchmonkey/internal/models"
)

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func stateStyle(state models.RunState) lipgloss.Style {
	switch state {
	case models.RunCompleted:
		return styles.ok
	case models.RunFailed:
		return styles.err
	default:
		return styles.warn
	}
}

// RenderSummary produces a styled terminal report for a finished run.
func RenderSummary(summary *models.RunSummary) string {
	var buf bytes.Buffer

	buf.WriteString(styles.title.Render(fmt.Sprintf("Discovery run: %s", summary.Seed.Label())))
	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("State:              %s\n", stateStyle(summary.State).Render(string(summary.State))))
	buf.WriteString(fmt.Sprintf("Candidates found:   %d\n", summary.CandidatesFound))
	buf.WriteString(fmt.Sprintf("Matched in library: %d\n", summary.Matched))
	buf.WriteString(fmt.Sprintf("Unmatched:          %d\n", summary.Unmatched))
	buf.WriteString(fmt.Sprintf("Tracks written:     %d\n", summary.TracksWritten))
	buf.WriteString(fmt.Sprintf("Duplicates skipped: %d\n", summary.DuplicatesSkipped))

	if elapsed := summary.FinishedAt.Sub(summary.StartedAt); elapsed > 0 {
		buf.WriteString(styles.help.Render(fmt.Sprintf("Took %s", elapsed.Round(time.Millisecond))))
		buf.WriteString("\n")
	}

	if len(summary.Failures) > 0 {
		buf.WriteString("\n")
		buf.WriteString(styles.warn.Render(fmt.Sprintf("%d failure(s):", len(summary.Failures))))
		buf.WriteString("\n")
		for _, f := range summary.Failures {
			buf.WriteString(fmt.Sprintf("  [%s] %s\n", f.Phase, f.Message))
		}
	}

	return buf.String()
}

// ToJSON serializes a run summary, indented when pretty is set.
func ToJSON(summary *models.RunSummary, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(summary, "", "  ")
	}
	return json.Marshal(summary)
}

// ExportToMarkdown converts a run summary to a Markdown report.
func ExportToMarkdown(summary *models.RunSummary) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Discovery run: %s\n\n", summary.Seed.Label()))
	buf.WriteString(fmt.Sprintf("**State**: %s\n", summary.State))
	buf.WriteString(fmt.Sprintf("**Started**: %s\n\n", summary.StartedAt.Format(time.RFC3339)))

	buf.WriteString("| Metric | Count |\n|---|---|\n")
	buf.WriteString(fmt.Sprintf("| Candidates found | %d |\n", summary.CandidatesFound))
	buf.WriteString(fmt.Sprintf("| Matched | %d |\n", summary.Matched))
	buf.WriteString(fmt.Sprintf("| Unmatched | %d |\n", summary.Unmatched))
	buf.WriteString(fmt.Sprintf("| Tracks written | %d |\n", summary.TracksWritten))
	buf.WriteString(fmt.Sprintf("| Duplicates skipped | %d |\n", summary.DuplicatesSkipped))

	if len(summary.Failures) > 0 {
		buf.WriteString("\n## Failures\n\n")
		for _, f := range summary.Failures {
			buf.WriteString(fmt.Sprintf("- `%s`: %s\n", f.Phase, f.Message))
		}
	}

	return buf.Bytes()
}

// WriteReport writes a run summary to a file in the format implied by the
// extension (.json or .md), defaulting to plain text.
func WriteReport(summary *models.RunSummary, path string) error {
	var data []byte
	var err error

	switch {
	case strings.HasSuffix(path, ".json"):
		data, err = ToJSON(summary, true)
		if err != nil {
			return fmt.Errorf("failed to generate JSON report: %w", err)
		}
	case strings.HasSuffix(path, ".md"):
		data = ExportToMarkdown(summary)
	default:
		data = []byte(RenderSummary(summary))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
