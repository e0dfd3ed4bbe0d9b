package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/chronicle/internal/form"
)

// formModal renders an edit session as a column of text inputs
type formModal struct {
	kind   form.Kind
	mode   form.Mode
	key    string
	fields []form.Field
	inputs []textinput.Model
	focus  int
}

func newFormModal(s form.Session) *formModal {
	m := &formModal{
		kind:   s.Kind,
		mode:   s.Mode,
		key:    s.Key,
		fields: s.Fields,
		inputs: make([]textinput.Model, len(s.Fields)),
	}
	for i, f := range s.Fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 256
		in.Cursor.SetMode(cursor.CursorStatic)
		in.Width = 40
		in.SetValue(f.Value)
		if f.Name == "password" {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		if f.Numeric {
			in.Placeholder = "number"
		}
		m.inputs[i] = in
	}
	m.focusAt(0)
	return m
}

func (m *formModal) title() string {
	if m.kind == form.KindSettings {
		return "Global SSH Settings"
	}
	if m.mode == form.ModeCreate {
		return "New Device"
	}
	return "Edit Device " + m.key
}

func (m *formModal) focusAt(i int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	if i < 0 {
		i = len(m.inputs) - 1
	}
	if i >= len(m.inputs) {
		i = 0
	}
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

func (m *formModal) next() tea.Cmd { return m.focusAt(m.focus + 1) }
func (m *formModal) prev() tea.Cmd { return m.focusAt(m.focus - 1) }

func (m *formModal) onLast() bool {
	return m.focus == len(m.inputs)-1
}

func (m *formModal) update(msg tea.Msg) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

// apply pushes the edited inputs into the controller
func (m *formModal) apply(c *form.Controller) error {
	for i, f := range m.fields {
		v := m.inputs[i].Value()
		if v == f.Value {
			continue
		}
		if err := c.Set(f.Name, v); err != nil {
			return err
		}
		m.fields[i].Value = v
		m.fields[i].Touched = true
	}
	return nil
}

func (m *formModal) view(session form.Session, width int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title()))
	b.WriteString("\n")

	for i, f := range m.fields {
		label := f.Name
		if f.Required {
			label += " *"
		}
		style := BlurredInputStyle
		if i == m.focus {
			style = FocusedInputStyle
		}
		marker := "  "
		if f.Touched || m.inputs[i].Value() != f.Value {
			marker = ModifiedStyle.Render("● ")
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", marker, style.Render(LabelStyle.Render(label)), m.inputs[i].View()))
	}

	switch {
	case session.State == form.StateSubmitting:
		b.WriteString("\n" + SubtitleStyle.Render("Saving..."))
	case session.Err != nil:
		b.WriteString("\n" + ErrorTextStyle.Render(session.Err.Error()))
	}

	return ModalStyle.Width(SafeModalWidth(72, width)).Render(b.String())
}
