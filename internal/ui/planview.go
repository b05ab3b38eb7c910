package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbweber/vmtui/internal/fetch"
	"github.com/jbweber/vmtui/internal/vm"
)

// maxLogLines bounds the on-screen log. Stream sessions keep the full
// output for diagnostics.
const maxLogLines = 2000

// planView renders a running plan: the current step, a scrolling log of
// streamed output and, while downloading, a progress bar.
type planView struct {
	title    string
	step     string
	lines    []string
	log      viewport.Model
	bar      progress.Model
	progress fetch.Progress
	fetching bool
	width    int
}

func newPlanView(title string, width, height int) *planView {
	p := &planView{
		title: title,
		log:   viewport.New(0, 0),
		bar:   progress.New(progress.WithDefaultGradient()),
	}
	p.bar.ShowPercentage = false
	p.setSize(width, height)
	return p
}

func (p *planView) setSize(width, height int) {
	p.width = width
	p.log.Width = max(width-2, 10)
	p.log.Height = max(height-8, 3)
	p.bar.Width = max(width-20, 10)
	p.refreshLog()
}

func (p *planView) apply(ev vm.Event) {
	switch ev.Kind {
	case vm.StepStarted:
		p.step = fmt.Sprintf("[%d/%d] %s", ev.Index+1, ev.Total, ev.Title)
		p.fetching = false
		p.appendLine("==> " + ev.Title)
	case vm.StepSkipped:
		p.appendLine("--> " + ev.Title + " (skipped)")
	case vm.StepOutput:
		p.appendLine(ev.Line)
	case vm.StepProgress:
		p.fetching = true
		p.progress = ev.Progress
	case vm.StepFinished:
		if p.fetching {
			p.appendLine(p.progress.String())
		}
		p.fetching = false
		if ev.Err != nil {
			p.appendLine("!! " + ev.Title + " failed: " + ev.Err.Error())
		}
	}
}

func (p *planView) appendLine(line string) {
	p.lines = append(p.lines, strings.TrimRight(line, "\r"))
	if over := len(p.lines) - maxLogLines; over > 0 {
		p.lines = p.lines[over:]
	}
	p.refreshLog()
}

func (p *planView) refreshLog() {
	p.log.SetContent(strings.Join(p.lines, "\n"))
	p.log.GotoBottom()
}

// progressLine shows a bar when the total size is known and a byte counter
// otherwise.
func (p *planView) progressLine() string {
	if !p.fetching {
		return ""
	}
	if frac, ok := p.progress.Fraction(); ok {
		return p.bar.ViewAs(frac) + " " + p.progress.String()
	}
	return flashStyle.Render(p.progress.String())
}

func (p *planView) view() string {
	parts := []string{
		titleStyle.Render(p.title),
		headerStyle.Render(p.step),
		logStyle.Render(p.log.View()),
	}
	if line := p.progressLine(); line != "" {
		parts = append(parts, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
