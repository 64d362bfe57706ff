package views

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"UserManagerService/controller"
	"UserManagerService/models"
	"UserManagerService/style"
	"UserManagerService/validation"
)

const (
	AppTitle = "User Management"
	listHelp = "a add • e edit • d delete • r reload • q quit"
	formHelp = "tab/shift+tab move • enter submit • esc cancel"
)

// Results of the controller calls App runs as commands.
type (
	loadedMsg    struct{ err error }
	submittedMsg struct{ err error }
	deletedMsg   struct{ err error }
	expiredMsg   struct{}
)

// App is the root tea.Model. It never mutates state itself: keys become controller calls and every
// frame is rendered from a fresh controller.Snapshot.
type App struct {
	ctx     context.Context
	ctrl    *controller.Controller
	fields  []validation.Field
	form    FormModel
	spinner spinner.Model
	cursor  int
}

// NewApp returns the UI for ctrl. Blocking calls run with ctx.
func NewApp(ctx context.Context, ctrl *controller.Controller, schema *validation.Schema) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = style.Info
	fields := schema.Fields()
	return App{
		ctx:     ctx,
		ctrl:    ctrl,
		fields:  fields,
		form:    NewFormModel(fields),
		spinner: sp,
	}
}

// Init loads the collection.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.load())
}

func (a App) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: a.ctrl.Load(a.ctx)}
	}
}

func (a App) submit() tea.Cmd {
	return func() tea.Msg {
		return submittedMsg{err: a.ctrl.Submit(a.ctx)}
	}
}

func (a App) confirmDelete() tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{err: a.ctrl.ConfirmDelete(a.ctx)}
	}
}

func expireAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return expiredMsg{} })
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case loadedMsg, expiredMsg:
		a.cursor = clamp(a.cursor, len(a.ctrl.Snapshot().Users))
		return a, nil

	case submittedMsg:
		return a, a.afterCommand(msg.err)

	case deletedMsg:
		a.cursor = clamp(a.cursor, len(a.ctrl.Snapshot().Users))
		return a, a.afterCommand(msg.err)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		snap := a.ctrl.Snapshot()
		switch {
		case snap.Dialog.Open:
			return a.updateDialog(msg, snap)
		case snap.Form.Open:
			return a.updateForm(msg, snap)
		default:
			return a.updateList(msg, snap)
		}
	}
	return a, nil
}

// afterCommand schedules the toast expiry once a mutation succeeded.
func (a App) afterCommand(err error) tea.Cmd {
	if err != nil {
		return nil
	}
	return expireAfter(models.NotificationTTL)
}

func (a App) updateList(msg tea.KeyMsg, snap controller.Snapshot) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "up", "k":
		a.cursor = clamp(a.cursor-1, len(snap.Users))
	case "down", "j":
		a.cursor = clamp(a.cursor+1, len(snap.Users))
	case "r":
		if !snap.Busy() {
			return a, a.load()
		}
	case "a":
		a.ctrl.OpenAdd()
		return a, a.form.Load(a.ctrl.Snapshot().Form.Values)
	case "e", "enter":
		if len(snap.Users) == 0 {
			return a, nil
		}
		if err := a.ctrl.OpenEdit(snap.Users[clamp(a.cursor, len(snap.Users))].ID); err != nil {
			return a, nil
		}
		return a, a.form.Load(a.ctrl.Snapshot().Form.Values)
	case "d":
		if len(snap.Users) > 0 {
			a.ctrl.RequestDelete(snap.Users[clamp(a.cursor, len(snap.Users))].ID)
		}
	case "esc":
		a.ctrl.DismissError()
		a.ctrl.DismissNotification()
	}
	return a, nil
}

func (a App) updateForm(msg tea.KeyMsg, snap controller.Snapshot) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.ctrl.CloseForm()
		return a, nil
	case "enter":
		if snap.Busy() {
			return a, nil
		}
		return a, a.submit()
	}
	if snap.Busy() {
		return a, nil
	}

	var cmd tea.Cmd
	a.form, cmd = a.form.Update(msg)
	// Every input maps to a schema field and the form is open and idle, so SetField cannot fail here.
	name, value := a.form.Focused()
	_ = a.ctrl.SetField(name, value)
	return a, cmd
}

func (a App) updateDialog(msg tea.KeyMsg, snap controller.Snapshot) (tea.Model, tea.Cmd) {
	if snap.Busy() {
		return a, nil
	}
	switch msg.String() {
	case "y":
		return a, a.confirmDelete()
	case "n", "esc":
		a.ctrl.CancelDelete()
	}
	return a, nil
}

// View renders the current frame.
func (a App) View() string {
	snap := a.ctrl.Snapshot()
	var sb strings.Builder

	sb.WriteString(style.Title.Render(AppTitle) + "\n")

	if snap.Error != "" {
		sb.WriteString(style.Banner.Render(style.ErrorPrefix+" "+snap.Error) + "\n")
	}
	if n := snap.Notification; n != nil {
		sb.WriteString(renderNotification(*n) + "\n")
	}

	switch {
	case snap.Dialog.Open:
		sb.WriteString(RenderConfirm(snap))
	case snap.Form.Open:
		sb.WriteString(a.form.View(snap.Form, snap.State == controller.Submitting))
		sb.WriteString("\n" + style.Dim.Render(formHelp))
	default:
		if snap.Busy() {
			sb.WriteString(a.spinner.View() + " ")
		}
		sb.WriteString(RenderTable(snap, a.fields, a.cursor))
		sb.WriteString("\n\n" + style.Dim.Render(listHelp))
	}
	return sb.String() + "\n"
}

func renderNotification(n models.Notification) string {
	if n.Severity == models.SeverityError {
		return style.ErrorPrefix + " " + style.Error.Render(n.Message)
	}
	return style.SuccessPrefix + " " + style.Success.Render(n.Message)
}
