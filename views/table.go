// Package views renders the user manager as a terminal UI.
//
// The render functions are pure: they take a controller.Snapshot and return a string. App wires them to
// the controller and runs every blocking controller call as a tea.Cmd.
package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"UserManagerService/controller"
	"UserManagerService/models"
	"UserManagerService/style"
	"UserManagerService/validation"
)

const (
	EmptyMessage   = "No users found. Add your first user to get started."
	LoadingMessage = "Loading users..."
	ActionsLabel   = "Actions"
	ActionsCell    = "[e]dit [d]elete"
	// Placeholder is shown for an empty cell.
	Placeholder = "-"
)

// RenderTable renders the collection as a table with one column per field plus an actions column.
// cursor selects the highlighted row and is clamped to the collection.
func RenderTable(snap controller.Snapshot, fields []validation.Field, cursor int) string {
	if snap.State == controller.Loading {
		return style.Dim.Render(LoadingMessage)
	}
	if len(snap.Users) == 0 {
		return style.Dim.Render(EmptyMessage)
	}

	cols := columns(snap.Users, fields)
	width := 0
	for _, c := range cols {
		width += c.Width + 2
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows(snap.Users, fields)),
		table.WithFocused(!snap.Busy()),
		table.WithWidth(width),
		table.WithHeight(len(snap.Users)+2),
	)
	t.SetCursor(clamp(cursor, len(snap.Users)))
	return t.View()
}

func columns(users []models.User, fields []validation.Field) []table.Column {
	cols := make([]table.Column, 0, len(fields)+1)
	for _, f := range fields {
		w := lipgloss.Width(f.Label)
		for _, u := range users {
			w = max(w, lipgloss.Width(cell(u.Value(f.Name))))
		}
		cols = append(cols, table.Column{Title: f.Label, Width: w})
	}
	return append(cols, table.Column{Title: ActionsLabel, Width: lipgloss.Width(ActionsCell)})
}

func rows(users []models.User, fields []validation.Field) []table.Row {
	out := make([]table.Row, 0, len(users))
	for _, u := range users {
		row := make(table.Row, 0, len(fields)+1)
		for _, f := range fields {
			row = append(row, cell(u.Value(f.Name)))
		}
		out = append(out, append(row, ActionsCell))
	}
	return out
}

func cell(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
