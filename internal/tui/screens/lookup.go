package screens

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Lookup asks for the user id and assignment offering id of a student project
type Lookup struct {
	width  int
	height int

	inputs  []textinput.Model
	focus   int
	message string
}

func NewLookup() *Lookup {
	user := textinput.New()
	user.Placeholder = "User id"
	user.CharLimit = 32
	user.Width = 30

	offering := textinput.New()
	offering.Placeholder = "Assignment offering id"
	offering.CharLimit = 32
	offering.Width = 30

	return &Lookup{inputs: []textinput.Model{user, offering}}
}

func (l *Lookup) SetSize(width, height int) {
	l.width = width
	l.height = height
}

func (l *Lookup) Init() tea.Cmd {
	l.message = ""
	l.setFocus(l.focus)
	return textinput.Blink
}

func (l *Lookup) Values() (userID, offeringID string) {
	return strings.TrimSpace(l.inputs[0].Value()), strings.TrimSpace(l.inputs[1].Value())
}

func (l *Lookup) setFocus(i int) {
	l.focus = i
	for j := range l.inputs {
		if j == i {
			l.inputs[j].Focus()
		} else {
			l.inputs[j].Blur()
		}
	}
}

func (l *Lookup) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab", "down":
			l.setFocus((l.focus + 1) % len(l.inputs))
			return nil
		case "shift+tab", "up":
			l.setFocus((l.focus + len(l.inputs) - 1) % len(l.inputs))
			return nil
		case "enter":
			userID, offeringID := l.Values()
			if userID == "" || offeringID == "" {
				l.message = "Both ids are required"
				return nil
			}
			return NavigateToProject(userID, offeringID)
		case "esc":
			return tea.Quit
		}
	}

	var cmd tea.Cmd
	l.inputs[l.focus], cmd = l.inputs[l.focus].Update(msg)
	return cmd
}

func (l *Lookup) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("DEVTRACKER"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Early/often feedback for Web-CAT projects"))
	b.WriteString("\n\n")

	labels := []string{"User", "Offering"}
	for i, input := range l.inputs {
		label := NormalStyle.Render(labels[i])
		if i == l.focus {
			label = SelectedStyle.Render(labels[i])
		}
		b.WriteString(label + "\n")
		b.WriteString(input.View() + "\n\n")
	}

	if l.message != "" {
		b.WriteString(WarningStyle.Render(l.message))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("[tab] Next field  [enter] Open project  [esc] Quit"))
	return b.String()
}
