package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"UserManagerService/controller"
	"UserManagerService/style"
	"UserManagerService/validation"
)

const (
	AddTitle     = "Add New User"
	EditTitle    = "Edit User"
	CreateLabel  = "Create"
	UpdateLabel  = "Update"
	SavingLabel  = "Saving..."
	CancelLabel  = "Cancel"
	requiredMark = " *"
)

// FormModel holds one text input per schema field. The controller owns the values; the inputs mirror them.
type FormModel struct {
	fields []validation.Field
	inputs []textinput.Model
	focus  int
}

// NewFormModel builds the inputs for fields. The field kind picks the placeholder and the char limit.
func NewFormModel(fields []validation.Field) FormModel {
	m := FormModel{
		fields: fields,
		inputs: make([]textinput.Model, len(fields)),
	}
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Width = 40
		switch f.Kind {
		case validation.KindTel:
			ti.Placeholder = "+91 9876543210"
			ti.CharLimit = 16
		case validation.KindEmail:
			ti.Placeholder = "name@example.com"
			ti.CharLimit = 254
		default:
			ti.Placeholder = "Enter " + strings.ToLower(f.Label)
			ti.CharLimit = 50
		}
		m.inputs[i] = ti
	}
	return m
}

// Load replaces every input value and focuses the first input.
func (m *FormModel) Load(values map[string]string) tea.Cmd {
	for i, f := range m.fields {
		m.inputs[i].SetValue(values[f.Name])
	}
	return m.setFocus(0)
}

func (m *FormModel) setFocus(i int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	m.focus = (i + len(m.inputs)) % len(m.inputs)
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == m.focus {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}

// Focused returns the name and current value of the focused input.
func (m FormModel) Focused() (string, string) {
	if len(m.inputs) == 0 {
		return "", ""
	}
	return m.fields[m.focus].Name, m.inputs[m.focus].Value()
}

// Update moves focus on tab and shift+tab and passes everything else to the focused input.
func (m FormModel) Update(msg tea.Msg) (FormModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			return m, m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			return m, m.setFocus(m.focus - 1)
		}
	}
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// View renders the form for the controller's form state.
func (m FormModel) View(form controller.Form, submitting bool) string {
	var sb strings.Builder

	title := AddTitle
	submit := CreateLabel
	if form.Editing {
		title, submit = EditTitle, UpdateLabel
	}
	sb.WriteString(style.Title.Render(title) + "\n")

	if form.SubmitError != "" {
		sb.WriteString(style.Banner.Render(style.ErrorPrefix+" "+form.SubmitError) + "\n")
	}

	for i, f := range m.fields {
		label := f.Label
		if f.Required {
			label += requiredMark
		}
		sb.WriteString(style.Bold.Render(label) + "\n")
		sb.WriteString(m.inputs[i].View() + "\n")
		if msg := form.Errors[f.Name]; msg != "" {
			sb.WriteString(style.Error.Render(msg) + "\n")
		}
		sb.WriteString("\n")
	}

	if submitting {
		sb.WriteString(style.DisabledButton.Render(CancelLabel) + " " + style.DisabledButton.Render(SavingLabel))
	} else {
		sb.WriteString(style.Button.Render("esc "+CancelLabel) + " " + style.Button.Render("enter "+submit))
	}
	return style.Panel.Render(sb.String())
}
