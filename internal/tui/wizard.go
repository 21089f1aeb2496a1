// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package tui contains the interactive profile-creation wizard. It is a
// thin layer over the engine: the form only collects input and performs
// the same Create call the non-interactive CLI would.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/gitswitch/internal/engine"
	"github.com/toeirei/gitswitch/internal/i18n"
	"github.com/toeirei/gitswitch/internal/model"
)

// A simple style for focused text inputs.
var focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

// wizardModel drives the four-field creation form:
// 0: profile name, 1: full name, 2: email, 3: passphrase (optional).
type wizardModel struct {
	eng        *engine.Engine
	focusIndex int
	inputs     []textinput.Model
	err        error

	// Created is set once the engine accepted the new profile.
	Created *model.Profile
	// Canceled is set when the user backed out.
	Canceled bool
}

// NewWizard returns the profile-creation wizard program model.
func NewWizard(eng *engine.Engine) tea.Model {
	m := wizardModel{
		eng:    eng,
		inputs: make([]textinput.Model, 4),
	}

	var t textinput.Model
	for i := range m.inputs {
		t = textinput.New()
		t.Cursor.Style = focusedStyle
		t.CharLimit = 128
		t.Width = 40

		switch i {
		case 0:
			t.Prompt = i18n.T("wizard.prompt_profile")
			t.Placeholder = "work"
		case 1:
			t.Prompt = i18n.T("wizard.prompt_fullname")
			t.Placeholder = "Jane Doe"
		case 2:
			t.Prompt = i18n.T("wizard.prompt_email")
			t.Placeholder = "jane@example.com"
		case 3:
			t.Prompt = i18n.T("wizard.prompt_passphrase")
			t.EchoMode = textinput.EchoPassword
			t.EchoCharacter = '•'
		}
		m.inputs[i] = t
	}

	m.inputs[0].Focus()
	m.inputs[0].TextStyle = focusedStyle

	return m
}

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.Canceled = true
			return m, tea.Quit

		// Set focus to next input
		case "tab", "shift+tab", "enter", "up", "down":
			s := msg.String()

			// Did the user press enter while the submit button was
			// focused? If so, create the profile.
			if s == "enter" && m.focusIndex == len(m.inputs) {
				name := strings.TrimSpace(m.inputs[0].Value())
				fullName := strings.TrimSpace(m.inputs[1].Value())
				email := strings.TrimSpace(m.inputs[2].Value())
				passphrase := m.inputs[3].Value()

				if name == "" || fullName == "" || email == "" {
					m.err = fmt.Errorf("%s", i18n.T("wizard.err_empty_fields"))
					return m, nil
				}

				profile, err := m.eng.Create(name, fullName, email, passphrase)
				if err != nil {
					m.err = err
					return m, nil
				}
				m.Created = profile
				return m, tea.Quit
			}

			// Cycle focus
			if s == "up" || s == "shift+tab" {
				m.focusIndex--
			} else {
				m.focusIndex++
			}
			if m.focusIndex > len(m.inputs) {
				m.focusIndex = 0
			} else if m.focusIndex < 0 {
				m.focusIndex = len(m.inputs)
			}

			cmds := make([]tea.Cmd, len(m.inputs))
			for i := 0; i <= len(m.inputs)-1; i++ {
				if i == m.focusIndex {
					cmds[i] = m.inputs[i].Focus()
					m.inputs[i].TextStyle = focusedStyle
					continue
				}
				m.inputs[i].Blur()
				m.inputs[i].TextStyle = lipgloss.NewStyle()
			}

			return m, tea.Batch(cmds...)
		}
	}

	// Handle character input and blinking
	cmd := m.updateInputs(msg)
	return m, cmd
}

func (m *wizardModel) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

func (m wizardModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(i18n.T("wizard.title")))
	b.WriteString("\n\n")

	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}

	submit := i18n.T("wizard.submit")
	if m.focusIndex == len(m.inputs) {
		submit = focusedStyle.Render("> " + submit)
	} else {
		submit = "  " + submit
	}
	b.WriteString("\n" + submit + "\n")

	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + i18n.T("wizard.help") + "\n")
	return b.String()
}

// Result extracts the wizard outcome from a finished program model.
func Result(m tea.Model) (created *model.Profile, canceled bool) {
	w, ok := m.(wizardModel)
	if !ok {
		return nil, true
	}
	return w.Created, w.Canceled
}
