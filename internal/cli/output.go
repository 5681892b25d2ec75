package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/randalmurphal/taskmaster/internal/task"
)

const defaultWidth = 100

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	idStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	statusStyles = map[task.Status]lipgloss.Style{
		task.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		task.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		task.StatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		task.StatusReview:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		task.StatusDeferred:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		task.StatusCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

// printer renders human output, colouring only when writing to a terminal.
type printer struct {
	w     io.Writer
	color bool
	width int
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w, width: defaultWidth}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		p.color = os.Getenv("NO_COLOR") == ""
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			p.width = width
		}
	}
	return p
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *printer) status(s task.Status) string {
	text := statusIcon(s) + " " + string(s)
	style, ok := statusStyles[s]
	if !ok {
		return text
	}
	return p.render(style, text)
}

func (p *printer) priority(pr task.Priority) string {
	if pr == "" {
		pr = task.DefaultPriority
	}
	style, ok := priorityStyles[pr]
	if !ok {
		return string(pr)
	}
	return p.render(style, string(pr))
}

func (p *printer) header(s string) string {
	return p.render(headerStyle, s)
}

func (p *printer) separator(n int) string {
	return p.render(separatorStyle, strings.Repeat("─", n))
}

func (p *printer) id(s string) string {
	return p.render(idStyle, s)
}

func (p *printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func statusIcon(status task.Status) string {
	switch status {
	case task.StatusPending:
		return "○"
	case task.StatusInProgress:
		return "◐"
	case task.StatusDone:
		return "✓"
	case task.StatusReview:
		return "◎"
	case task.StatusDeferred:
		return "⏸"
	case task.StatusCancelled:
		return "✗"
	default:
		return "?"
	}
}

// truncate shortens s to maxLen runes, ending with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDeps(refs []task.Ref) string {
	if len(refs) == 0 {
		return "-"
	}
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// parseRefs parses a comma-separated list of task or subtask ids.
func parseRefs(s string) ([]task.Ref, error) {
	var refs []task.Ref
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ref, err := task.ParseRef(part)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parseIDs parses a comma-separated list of top-level task ids.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid task id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
