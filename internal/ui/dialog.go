package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// promptLimit is the longest free-form name the prompt accepts.
const promptLimit = 40

const dialogWidth = 72

type dialogKind int

const (
	dialogMessage dialogKind = iota + 1
	dialogConfirm
	dialogPrompt
)

// dialogResult is what the operator answered. OK is false for cancel, a
// NO answer or an empty prompt.
type dialogResult struct {
	OK    bool
	Value string
}

// dialog is a modal box. While one is open it receives every key and the
// status poll is suspended.
type dialog struct {
	kind   dialogKind
	title  string
	body   string
	choice *MenuModel
	input  textinput.Model
	done   func(dialogResult) tea.Cmd
}

func newMessage(title, body string, done func(dialogResult) tea.Cmd) *dialog {
	return &dialog{kind: dialogMessage, title: title, body: body, done: done}
}

// newConfirm asks a NO/YES question with NO selected.
func newConfirm(title, body string, done func(dialogResult) tea.Cmd) *dialog {
	return &dialog{
		kind:   dialogConfirm,
		title:  title,
		body:   body,
		choice: NewMenu([]string{"NO", "YES"}),
		done:   done,
	}
}

func newPrompt(title, placeholder string, done func(dialogResult) tea.Cmd) *dialog {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = promptLimit
	ti.Width = promptLimit
	ti.Focus()

	return &dialog{kind: dialogPrompt, title: title, input: ti, done: done}
}

// update feeds a key to the dialog. closed reports whether the dialog
// produced its result.
func (d *dialog) update(msg tea.KeyMsg) (closed bool, res dialogResult, cmd tea.Cmd) {
	switch d.kind {
	case dialogMessage:
		if key.Matches(msg, keys.Confirm) || key.Matches(msg, keys.Cancel) {
			return true, dialogResult{OK: true}, nil
		}

	case dialogConfirm:
		switch result, i := handleMenuKey(d.choice, msg); result {
		case menuConfirmed:
			return true, dialogResult{OK: i == 1}, nil
		case menuCancelled:
			return true, dialogResult{}, nil
		}

	case dialogPrompt:
		switch msg.Type {
		case tea.KeyEnter:
			value := strings.TrimSpace(d.input.Value())
			return true, dialogResult{OK: value != "", Value: value}, nil
		case tea.KeyEsc:
			return true, dialogResult{}, nil
		}
		d.input, cmd = d.input.Update(msg)
		return false, dialogResult{}, cmd
	}
	return false, dialogResult{}, nil
}

func (d *dialog) view(width int) string {
	var parts []string
	parts = append(parts, titleStyle.Render(d.title))
	if d.body != "" {
		parts = append(parts, d.body)
	}

	switch d.kind {
	case dialogMessage:
		parts = append(parts, "", footerStyle.Render("press enter to continue"))
	case dialogConfirm:
		parts = append(parts, "", d.choice.View(width, ""))
	case dialogPrompt:
		parts = append(parts, d.input.View(), "", footerStyle.Render("enter to accept, esc to cancel"))
	}

	style := dialogStyle
	if width > 8 {
		style = style.Width(min(width-2, dialogWidth))
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
