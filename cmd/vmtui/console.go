package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jbweber/vmtui/internal/catalog"
	"github.com/jbweber/vmtui/internal/fetch"
	"github.com/jbweber/vmtui/internal/host"
	"github.com/jbweber/vmtui/internal/stream"
	"github.com/jbweber/vmtui/internal/ui"
	"github.com/jbweber/vmtui/internal/vm"
)

var errNoTerminal = errors.New("the console needs an interactive terminal; use the status, usb or health subcommands instead")

// runConsole opens the interactive console on the target VM.
func runConsole(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNoTerminal
	}

	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	cat, err := catalog.LoadFromFile(e.cfg.Paths.Catalog)
	if err != nil {
		return err
	}

	var notice string
	if report := host.NewChecker(e.runner, e.cfg.Libvirt.URI).Check(ctx); report.NeedsAttention() {
		notice = strings.Join(report.Lines(), "\n")
	}

	ui.InitColorProfile(e.cfg.UI.Color)

	executor := vm.NewExecutor(
		stream.NewSupervisor(e.runner, e.cfg.Paths.DiagnosticsDir),
		fetch.New(nil),
	)

	app := ui.New(ctx, e.session, e.engine(), executor, e.runner, ui.Options{
		MenuPoll: e.cfg.MenuPoll(),
		USBPoll:  e.cfg.USBPoll(),
		URI:      e.cfg.Libvirt.URI,
		Create: vm.CreateOptions{
			Profile:  cat.Profile,
			VMDir:    e.cfg.Paths.VMDir,
			ImageDir: e.cfg.Paths.ImageDir,
			ShareDir: e.cfg.Paths.ShareDir,
			URI:      e.cfg.Libvirt.URI,
			Owner:    e.user.Owner(),
		},
		Images:   cat.Images,
		HostUser: e.user.Name,
		Notice:   notice,
	})

	return ui.Run(ctx, app)
}
