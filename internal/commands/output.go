package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/taskbook/internal/core/task"
	"github.com/colonyops/taskbook/internal/core/user"
	"github.com/colonyops/taskbook/pkg/iojson"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	overdueStyle = cellStyle.Foreground(lipgloss.Color("196"))
	doneStyle    = cellStyle.Foreground(lipgloss.Color("245"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// printer writes command results either as JSON or as tables.
type printer struct {
	w    io.Writer
	ew   io.Writer
	json bool
}

// newPrinter picks JSON output unless a table was requested or, in auto
// mode, the writer is a terminal.
func newPrinter(flags *Flags, c *cli.Command) printer {
	root := c.Root()
	p := printer{w: root.Writer, ew: root.ErrWriter}
	if p.w == nil {
		p.w = os.Stdout
	}
	if p.ew == nil {
		p.ew = os.Stderr
	}

	switch flags.Output {
	case OutputJSON:
		p.json = true
	case OutputTable:
		p.json = false
	default:
		f, ok := p.w.(*os.File)
		p.json = !ok || !term.IsTerminal(int(f.Fd()))
	}
	return p
}

// record prints a single value. In table mode render supplies the text.
func (p printer) record(v any, render func() string) error {
	if p.json {
		return iojson.WriteWith(p.w, p.ew, v)
	}
	_, err := fmt.Fprintln(p.w, render())
	return err
}

// message prints a short confirmation. JSON mode wraps it with the value.
func (p printer) message(msg string, v any) error {
	if p.json {
		return iojson.WriteWith(p.w, p.ew, v)
	}
	_, err := fmt.Fprintln(p.w, okStyle.Render(msg))
	return err
}

func emitList[T any](p printer, items []T, headers []string, row func(T) []string, style func(T) lipgloss.Style) error {
	if p.json {
		for _, it := range items {
			if err := iojson.WriteLine(p.w, it); err != nil {
				return err
			}
		}
		return nil
	}

	if len(items) == 0 {
		_, err := fmt.Fprintln(p.ew, "No results")
		return err
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, row(it))
	}

	t := newTable(headers, rows)
	if style != nil {
		t = t.StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			if r >= 0 && r < len(items) {
				return style(items[r])
			}
			return cellStyle
		})
	}
	_, err := fmt.Fprintln(p.w, t.Render())
	return err
}

func newTable(headers []string, rows [][]string) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		t = t.Row(r...)
	}
	return t
}

// fields renders label/value pairs as a two column table.
func fields(pairs ...[2]string) string {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	return newTable([]string{"FIELD", "VALUE"}, rows).Render()
}

var taskHeaders = []string{"ID", "TITLE", "STATUS", "PRIORITY", "CATEGORY", "DUE", "TAGS"}

func taskRow(t task.Task) []string {
	return []string{t.ID, t.Title, string(t.Status), string(t.Priority), string(t.Category), formatDue(t.DueDate), strings.Join(t.Tags, ",")}
}

func taskStyle(now time.Time) func(task.Task) lipgloss.Style {
	return func(t task.Task) lipgloss.Style {
		switch {
		case t.IsCompleted():
			return doneStyle
		case t.IsOverdue(now):
			return overdueStyle
		default:
			return cellStyle
		}
	}
}

func taskDetail(t task.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(fields(
		[2]string{"id", t.ID},
		[2]string{"title", t.Title},
		[2]string{"description", t.Description},
		[2]string{"status", string(t.Status)},
		[2]string{"priority", string(t.Priority)},
		[2]string{"category", string(t.Category)},
		[2]string{"owner", t.OwnerID},
		[2]string{"assignee", t.AssigneeID},
		[2]string{"due", dueLabel(t, now)},
		[2]string{"tags", strings.Join(t.Tags, ", ")},
		[2]string{"hours", fmt.Sprintf("%s / %s (%.0f%%)", formatHours(t.ActualHours), formatHours(t.EstimatedHours), t.Progress())},
		[2]string{"depends on", strings.Join(t.Dependencies, ", ")},
		[2]string{"created", t.CreatedAt.Format(time.RFC3339)},
		[2]string{"updated", t.UpdatedAt.Format(time.RFC3339)},
	))

	if len(t.Notes) > 0 {
		rows := make([][]string, 0, len(t.Notes))
		for _, n := range t.Notes {
			rows = append(rows, []string{n.CreatedAt.Format("2006-01-02 15:04"), n.Author, n.Content})
		}
		b.WriteString("\n")
		b.WriteString(newTable([]string{"WHEN", "AUTHOR", "NOTE"}, rows).Render())
	}
	return b.String()
}

func dueLabel(t task.Task, now time.Time) string {
	days, ok := t.DaysUntilDue(now)
	if !ok {
		return "-"
	}
	label := formatDue(t.DueDate)
	switch {
	case t.IsOverdue(now) && days == 0:
		return label + " " + errStyle.Render("(overdue)")
	case t.IsOverdue(now):
		return label + " " + errStyle.Render(fmt.Sprintf("(overdue by %d days)", -days))
	case t.IsDueSoon(now) && !t.IsCompleted():
		return label + " " + warnStyle.Render(fmt.Sprintf("(due in %d days)", days))
	default:
		return label
	}
}

func formatDue(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return d.Local().Format("2006-01-02")
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

var userHeaders = []string{"ID", "USERNAME", "EMAIL", "NAME", "ROLE", "ACTIVE"}

func userRow(u user.User) []string {
	return []string{u.ID, u.Username, u.Email, u.FullName, string(u.Role), strconv.FormatBool(u.IsActive)}
}

func userDetail(u user.User) string {
	lastLogin := "never"
	if u.LastLoginAt != nil {
		lastLogin = u.LastLoginAt.Format(time.RFC3339)
	}
	return fields(
		[2]string{"id", u.ID},
		[2]string{"username", u.Username},
		[2]string{"email", u.Email},
		[2]string{"full name", u.FullName},
		[2]string{"role", string(u.Role)},
		[2]string{"active", strconv.FormatBool(u.IsActive)},
		[2]string{"created", u.CreatedAt.Format(time.RFC3339)},
		[2]string{"last login", lastLogin},
		[2]string{"theme", u.Preferences.Theme},
		[2]string{"default category", string(u.Preferences.DefaultCategory)},
		[2]string{"email notifications", strconv.FormatBool(u.Preferences.EmailNotifications)},
		[2]string{"language", u.Preferences.Language},
	)
}

func statsDetail(s task.Stats) string {
	pairs := [][2]string{
		{"total", strconv.Itoa(s.Total)},
		{"completed", strconv.Itoa(s.Completed)},
		{"overdue", strconv.Itoa(s.Overdue)},
		{"due soon", strconv.Itoa(s.DueSoon)},
	}
	for _, st := range task.Statuses {
		if n, ok := s.ByStatus[st]; ok {
			pairs = append(pairs, [2]string{"status " + string(st), strconv.Itoa(n)})
		}
	}
	for _, pr := range task.Priorities {
		pairs = append(pairs, [2]string{"priority " + string(pr), strconv.Itoa(s.ByPriority[pr])})
	}
	return fields(pairs...)
}
