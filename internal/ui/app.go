// Package ui is the interactive console: a bubbletea program that shows
// the target VM's live state in a header, drives menus from the keyboard
// and runs long workflows in a scrolling log view.
//
// The loop is the only place state is read. Every key and every poll tick
// re-reads the domain state (and, on the USB screen, rescans devices)
// before the next frame. Ticks carry a generation number so a key press
// restarts the bounded wait and stale ticks are dropped. While a dialog is
// open or a workflow runs no tick is scheduled, which gives the unbounded
// wait.
package ui

import (
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbweber/vmtui/internal/catalog"
	"github.com/jbweber/vmtui/internal/host"
	"github.com/jbweber/vmtui/internal/libvirt"
	"github.com/jbweber/vmtui/internal/logging"
	"github.com/jbweber/vmtui/internal/reconcile"
	"github.com/jbweber/vmtui/internal/status"
	"github.com/jbweber/vmtui/internal/vm"
)

var log = logging.ForComponent(logging.CompUI)

// Default poll intervals.
const (
	DefaultMenuPoll = time.Second
	DefaultUSBPoll  = 2 * time.Second
)

// Controller is the VM session the console drives.
type Controller interface {
	Target() string
	SwitchTo(name string)
	State(ctx context.Context) status.DomainState
	Do(ctx context.Context, intent status.Intent) error
	Details(ctx context.Context) (*libvirt.Summary, error)
	ListDomains(ctx context.Context) ([]string, error)
	CreatePlan(opts vm.CreateOptions) (vm.Plan, error)
	DeletePlan(vmBase string) (vm.Plan, error)
}

// DeviceEngine scans and toggles USB devices for the target.
type DeviceEngine interface {
	Scan(ctx context.Context) []reconcile.Entry
	Toggle(ctx context.Context, entry reconcile.Entry) (reconcile.Action, error)
}

// PlanRunner runs multi-step workflows.
type PlanRunner interface {
	Run(ctx context.Context, plan vm.Plan, observe vm.Observer) vm.Outcome
}

// Launcher starts programs that take over the terminal or outlive it.
type Launcher interface {
	Launch(name string, args ...string) error
	Command(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Options configures the console.
type Options struct {
	MenuPoll time.Duration
	USBPoll  time.Duration
	URI      string

	// Create holds the paths, profile and owner used by the create and
	// delete workflows. Image is filled in from the image menu.
	Create vm.CreateOptions
	Images []catalog.Image

	// HostUser is added to the libvirt and kvm groups by host setup.
	HostUser string

	// Notice is shown in a message box at startup when set.
	Notice string
}

type screen int

const (
	screenMain screen = iota
	screenUSB
	screenImages
	screenSwitch
	screenPlan
)

type action int

const (
	actStart action = iota
	actForceStop
	actHibernate
	actPause
	actResume
	actConsole
	actViewer
	actDetails
	actUSB
	actCreate
	actDelete
	actSwitch
	actSetup
	actQuit
)

var mainMenu = []struct {
	act   action
	label string
}{
	{actStart, "Start / restore"},
	{actForceStop, "Force stop"},
	{actHibernate, "Hibernate (save state)"},
	{actPause, "Pause"},
	{actResume, "Resume"},
	{actConsole, "Serial console"},
	{actViewer, "Graphical viewer"},
	{actDetails, "Details"},
	{actUSB, "USB devices"},
	{actCreate, "Create / reset VM"},
	{actDelete, "Delete VM"},
	{actSwitch, "Switch VM"},
	{actSetup, "Host setup"},
	{actQuit, "Quit"},
}

var intents = map[action]status.Intent{
	actStart:     status.IntentStart,
	actForceStop: status.IntentForceStop,
	actHibernate: status.IntentHibernate,
	actPause:     status.IntentPause,
	actResume:    status.IntentResume,
}

const enterNameItem = "Enter name…"

type tickMsg struct{ gen int }

type planEventMsg vm.Event

type planDoneMsg vm.Outcome

type consoleDoneMsg struct{ err error }

// App is the console's bubbletea model.
type App struct {
	ctx      context.Context
	session  Controller
	devices  DeviceEngine
	plans    PlanRunner
	launcher Launcher
	opts     Options

	width  int
	height int

	screen screen
	menus  map[screen]*MenuModel
	dialog *dialog
	plan   *planView
	events chan tea.Msg

	// busy suspends polling and input while a workflow or the serial
	// console owns the operator.
	busy bool
	gen  int

	state    status.DomainState
	entries  []reconcile.Entry
	domains  []string
	flash    string
	flashErr bool
	quitting bool
}

// New returns the console model. Zero poll intervals use the defaults.
func New(ctx context.Context, session Controller, devices DeviceEngine, plans PlanRunner, launcher Launcher, opts Options) *App {
	if opts.MenuPoll <= 0 {
		opts.MenuPoll = DefaultMenuPoll
	}
	if opts.USBPoll <= 0 {
		opts.USBPoll = DefaultUSBPoll
	}

	labels := make([]string, 0, len(mainMenu))
	for _, item := range mainMenu {
		labels = append(labels, item.label)
	}
	images := make([]string, 0, len(opts.Images))
	for _, img := range opts.Images {
		images = append(images, img.Name)
	}

	return &App{
		ctx:      ctx,
		session:  session,
		devices:  devices,
		plans:    plans,
		launcher: launcher,
		opts:     opts,
		menus: map[screen]*MenuModel{
			screenMain:   NewMenu(labels),
			screenUSB:    NewMenu(nil),
			screenImages: NewMenu(images),
			screenSwitch: NewMenu(nil),
		},
	}
}

// Run starts the program on the alternate screen and blocks until the
// operator quits.
func Run(ctx context.Context, app *App) error {
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init reads the first state and starts the poll.
func (a *App) Init() tea.Cmd {
	a.refresh()
	if a.opts.Notice != "" {
		a.dialog = newMessage("Host check", a.opts.Notice, nil)
	}
	return a.schedule()
}

// Update handles one message.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.setSize(msg.Width, msg.Height)
		return a, nil

	case tickMsg:
		if msg.gen != a.gen {
			return a, nil
		}
		a.refresh()
		return a, a.schedule()

	case planEventMsg:
		if a.plan != nil {
			a.plan.apply(vm.Event(msg))
		}
		return a, a.waitForPlan()

	case planDoneMsg:
		return a, a.finishPlan(vm.Outcome(msg))

	case consoleDoneMsg:
		a.busy = false
		if msg.err != nil {
			a.setFlash(fmt.Sprintf("console exited: %v", msg.err), true)
		}
		a.refresh()
		return a, a.schedule()

	case tea.KeyMsg:
		if a.busy {
			return a, nil
		}
		if key.Matches(msg, keys.Quit) {
			a.quitting = true
			return a, tea.Quit
		}
		if a.dialog != nil {
			return a, a.updateDialog(msg)
		}

		a.flash, a.flashErr = "", false
		cmd := a.handleKey(msg)
		if a.quitting {
			return a, tea.Quit
		}
		if !a.busy {
			a.refresh()
		}
		return a, tea.Batch(cmd, a.schedule())
	}
	return a, nil
}

// schedule starts a new bounded wait and invalidates older ticks. It
// returns nil while waiting is unbounded.
func (a *App) schedule() tea.Cmd {
	a.gen++
	if !a.polling() {
		return nil
	}
	gen := a.gen
	return tea.Tick(a.pollInterval(), func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// polling reports whether the loop is in a bounded wait.
func (a *App) polling() bool {
	return !a.busy && a.dialog == nil
}

func (a *App) pollInterval() time.Duration {
	if a.screen == screenUSB {
		return a.opts.USBPoll
	}
	return a.opts.MenuPoll
}

// refresh re-reads everything the current screen shows.
func (a *App) refresh() {
	a.state = a.session.State(a.ctx)
	if a.screen == screenUSB {
		a.entries = a.devices.Scan(a.ctx)
		a.menus[screenUSB].SetItems(usbItems(a.entries, a.width))
	}
}

func (a *App) setSize(width, height int) {
	a.width, a.height = width, height
	for _, m := range a.menus {
		m.SetHeight(max(height-8, 3))
	}
	if a.plan != nil {
		a.plan.setSize(width, height-4)
	}
	if a.screen == screenUSB {
		a.menus[screenUSB].SetItems(usbItems(a.entries, width))
	}
}

func (a *App) setFlash(text string, isErr bool) {
	a.flash, a.flashErr = text, isErr
	if isErr {
		log.Warn(text, "vm", a.session.Target())
	}
}

func (a *App) showMessage(title, body string) {
	a.dialog = newMessage(title, body, nil)
}

func (a *App) updateDialog(msg tea.KeyMsg) tea.Cmd {
	d := a.dialog
	closed, res, cmd := d.update(msg)
	if !closed {
		return cmd
	}

	a.dialog = nil
	var next tea.Cmd
	if d.done != nil {
		next = d.done(res)
	}
	if !a.busy {
		a.refresh()
	}
	return tea.Batch(next, a.schedule())
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	m, ok := a.menus[a.screen]
	if !ok {
		return nil
	}

	result, i := handleMenuKey(m, msg)
	switch result {
	case menuConfirmed:
		switch a.screen {
		case screenMain:
			return a.runAction(mainMenu[i].act)
		case screenUSB:
			a.toggle(i)
		case screenImages:
			return a.chooseImage(i)
		case screenSwitch:
			a.chooseDomain(i)
		}
	case menuCancelled:
		if a.screen == screenMain {
			a.quitting = true
			return nil
		}
		a.screen = screenMain
	}
	return nil
}

func (a *App) runAction(act action) tea.Cmd {
	if intent, ok := intents[act]; ok {
		a.request(intent)
		return nil
	}

	switch act {
	case actConsole:
		return a.openConsole()
	case actViewer:
		a.openViewer()
	case actDetails:
		a.showDetails()
	case actUSB:
		a.screen = screenUSB
		a.menus[screenUSB].Select(0)
	case actCreate:
		if len(a.opts.Images) == 0 {
			a.showMessage("Create / reset", "The image catalog is empty.")
			return nil
		}
		a.screen = screenImages
	case actDelete:
		a.confirmDelete()
	case actSwitch:
		a.openSwitch()
	case actSetup:
		a.confirmSetup()
	case actQuit:
		a.quitting = true
	}
	return nil
}

// request sends one lifecycle intent. The footer says what the next poll
// is expected to show; nothing waits for it.
func (a *App) request(intent status.Intent) {
	from := a.state
	if err := a.session.Do(a.ctx, intent); err != nil {
		a.showMessage("Request failed", err.Error())
		return
	}
	if to, ok := status.Expect(intent, from); ok {
		a.setFlash(fmt.Sprintf("%s requested, expecting %s", intent, to.Label()), false)
		return
	}
	a.setFlash(fmt.Sprintf("%s requested while %s", intent, from.Label()), false)
}

func (a *App) virshArgs(args ...string) []string {
	if a.opts.URI != "" {
		args = append([]string{"-c", a.opts.URI}, args...)
	}
	return args
}

// openConsole hands the terminal to virsh console until the operator
// detaches with Ctrl+].
func (a *App) openConsole() tea.Cmd {
	cmd := a.launcher.Command(a.ctx, "virsh", a.virshArgs("console", a.session.Target())...)
	a.busy = true
	log.Info("opening console", "vm", a.session.Target())
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return consoleDoneMsg{err: err}
	})
}

func (a *App) openViewer() {
	var args []string
	if a.opts.URI != "" {
		args = append(args, "--connect", a.opts.URI)
	}
	args = append(args, "--attach", a.session.Target())

	if err := a.launcher.Launch("virt-viewer", args...); err != nil {
		a.setFlash(fmt.Sprintf("failed to launch viewer: %v", err), true)
		return
	}
	a.setFlash("viewer launched", false)
}

func (a *App) showDetails() {
	sum, err := a.session.Details(a.ctx)
	if err != nil {
		a.showMessage("Details", err.Error())
		return
	}
	a.showMessage(a.session.Target(), strings.Join(sum.Lines(), "\n"))
}

// toggle flips entry i. A failure, such as a domain that is not running,
// only shows in the footer.
func (a *App) toggle(i int) {
	if i < 0 || i >= len(a.entries) {
		return
	}
	entry := a.entries[i]
	action, err := a.devices.Toggle(a.ctx, entry)
	if err != nil {
		a.setFlash(err.Error(), true)
		return
	}
	a.setFlash(fmt.Sprintf("%s %s", action, entry.Device.Signature()), false)
}

func (a *App) chooseImage(i int) tea.Cmd {
	img := a.opts.Images[i]
	target := a.session.Target()
	a.screen = screenMain

	start := func() tea.Cmd {
		opts := a.opts.Create
		opts.Image = img
		plan, err := a.session.CreatePlan(opts)
		if err != nil {
			a.showMessage("Create / reset", err.Error())
			return nil
		}
		return a.startPlan(plan)
	}

	if a.state == status.NotFound {
		return start()
	}
	a.dialog = newConfirm(
		fmt.Sprintf("Overwrite %s?", target),
		fmt.Sprintf("%s exists (%s). Its disk will be replaced with a fresh %s install.", target, a.state.Label(), img.Name),
		func(res dialogResult) tea.Cmd {
			if !res.OK {
				return nil
			}
			return start()
		})
	return nil
}

func (a *App) confirmDelete() {
	target := a.session.Target()
	a.dialog = newConfirm(
		fmt.Sprintf("Delete %s?", target),
		"The domain is stopped and undefined and its disk and seed are removed.",
		func(res dialogResult) tea.Cmd {
			if !res.OK {
				return nil
			}
			plan, err := a.session.DeletePlan(a.opts.Create.VMDir)
			if err != nil {
				a.showMessage("Delete", err.Error())
				return nil
			}
			return a.startPlan(plan)
		})
}

func (a *App) openSwitch() {
	names, err := a.session.ListDomains(a.ctx)
	if err != nil {
		a.setFlash(fmt.Sprintf("failed to list domains: %v", err), true)
	}
	a.domains = names

	m := a.menus[screenSwitch]
	m.SetItems(append(slices.Clone(names), enterNameItem))
	m.Select(max(slices.Index(names, a.session.Target()), 0))
	a.screen = screenSwitch
}

func (a *App) chooseDomain(i int) {
	a.screen = screenMain
	if i < len(a.domains) {
		a.session.SwitchTo(a.domains[i])
		return
	}
	a.dialog = newPrompt("Switch VM", "vm name", func(res dialogResult) tea.Cmd {
		if res.OK {
			a.session.SwitchTo(res.Value)
		}
		return nil
	})
}

func (a *App) confirmSetup() {
	body := "Installs " + strings.Join(host.SetupPackages, ", ")
	if a.opts.HostUser != "" && a.opts.HostUser != "root" {
		body += fmt.Sprintf("\nand adds %s to the libvirt and kvm groups.", a.opts.HostUser)
	}
	a.dialog = newConfirm("Run host setup?", body, func(res dialogResult) tea.Cmd {
		if !res.OK {
			return nil
		}
		return a.startPlan(host.SetupPlan(a.opts.HostUser))
	})
}

// startPlan runs plan off the loop and feeds its events back as messages.
// Input and polling stay suspended until the plan is done.
func (a *App) startPlan(plan vm.Plan) tea.Cmd {
	a.busy = true
	a.screen = screenPlan
	a.plan = newPlanView(plan.Name, a.width, a.height-4)

	events := make(chan tea.Msg, 64)
	a.events = events
	ctx, runner := a.ctx, a.plans
	go func() {
		out := runner.Run(ctx, plan, func(ev vm.Event) {
			events <- planEventMsg(ev)
		})
		events <- planDoneMsg(out)
		close(events)
	}()
	return a.waitForPlan()
}

func (a *App) waitForPlan() tea.Cmd {
	events := a.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		return <-events
	}
}

func (a *App) finishPlan(out vm.Outcome) tea.Cmd {
	a.busy = false
	a.events = nil

	title := "Done"
	if !out.OK {
		title = "Failed"
	}
	a.dialog = newMessage(title, out.Message, func(dialogResult) tea.Cmd {
		a.screen = screenMain
		a.plan = nil
		return nil
	})
	return a.schedule()
}

// usbItems renders one row per device, cutting labels to fit width.
func usbItems(entries []reconcile.Entry, width int) []string {
	labelWidth := 0
	if width > 0 {
		labelWidth = max(width-34, 8)
	}
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		mark := "[ ]"
		if e.Attached {
			mark = "[x]"
		}
		items = append(items, fmt.Sprintf("%s %03d:%03d %s %s",
			mark, e.Device.Bus, e.Device.Device, e.Device.Signature(), e.Device.DisplayLabel(labelWidth)))
	}
	return items
}

// View renders the header, the current screen or dialog and the footer.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var body string
	switch a.screen {
	case screenPlan:
		body = a.plan.view()
	case screenUSB:
		body = titleStyle.Render("USB devices for "+a.session.Target()) + "\n" +
			a.menus[screenUSB].View(a.width, "(no USB devices found)")
	case screenImages:
		body = titleStyle.Render("Choose an image") + "\n" +
			a.menus[screenImages].View(a.width, "(no images)")
	case screenSwitch:
		body = titleStyle.Render("Switch VM") + "\n" +
			a.menus[screenSwitch].View(a.width, "")
	default:
		body = a.menus[screenMain].View(a.width, "")
	}

	if a.dialog != nil {
		box := a.dialog.view(a.width - 4)
		if a.width > 0 && a.height > 4 {
			box = lipgloss.Place(a.width, a.height-4, lipgloss.Center, lipgloss.Center, box)
		}
		body = box
	}

	return lipgloss.JoinVertical(lipgloss.Left, a.headerView(), "", body, "", a.footerView())
}

func (a *App) headerView() string {
	target := a.session.Target()
	if target == "" {
		target = "(none)"
	}
	label := a.state.Label()
	return headerStyle.Render("vmtui") + "  VM: " + headerStyle.Render(target) +
		"  Status: " + stateStyle(label).Render(label)
}

func (a *App) footerView() string {
	var lines []string
	if a.flash != "" {
		style := flashStyle
		if a.flashErr {
			style = errorStyle
		}
		lines = append(lines, style.Render(a.flash))
	}

	if a.busy {
		lines = append(lines, footerStyle.Render("working… input is paused until this finishes"))
		return strings.Join(lines, "\n")
	}

	var help []string
	for _, b := range []key.Binding{keys.Up, keys.Down, keys.Confirm, keys.Cancel} {
		h := b.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	if a.screen == screenUSB {
		help[2] = "enter attach/detach"
	}
	lines = append(lines, footerStyle.Render(strings.Join(help, " • ")))
	return strings.Join(lines, "\n")
}
