package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jbweber/vmtui/internal/command"
	"github.com/jbweber/vmtui/internal/config"
	"github.com/jbweber/vmtui/internal/host"
	"github.com/jbweber/vmtui/internal/hypervisor"
	"github.com/jbweber/vmtui/internal/libvirt"
	"github.com/jbweber/vmtui/internal/logging"
	"github.com/jbweber/vmtui/internal/reconcile"
	"github.com/jbweber/vmtui/internal/vm"
)

// env is everything a command needs, built from the config file and the
// global flags.
type env struct {
	cfg     *config.Config
	user    host.User
	runner  *command.Exec
	backend hypervisor.Backend
	closer  io.Closer
	session *vm.Session
}

// loadConfig reads the config and resolves "~" against the invoking
// user's home, so sudo does not move paths under /root.
func loadConfig() (*config.Config, host.User, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, host.User{}, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, host.User{}, err
	}

	u, err := host.InvokingUser()
	if err != nil {
		return nil, host.User{}, err
	}
	cfg.ResolvePaths(u.Home)
	return cfg, u, nil
}

// newEnv loads the config, starts logging, checks privileges and opens
// the management backend. The caller must call close.
func newEnv(ctx context.Context) (*env, error) {
	cfg, u, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logging.Init(cfg.Logging(debug))

	if err := host.RequireRoot(cfg.Privilege.SelfElevate); err != nil {
		logging.Shutdown()
		return nil, err
	}

	runner := command.NewExec(cfg.CommandTimeout(), cfg.Stream.PTY)
	backend, closer, err := hypervisor.Open(ctx, hypervisor.Options{
		Backend: cfg.Libvirt.Backend,
		URI:     cfg.Libvirt.URI,
		RPC: libvirt.Options{
			Socket:  cfg.Libvirt.Socket,
			Timeout: cfg.RPCTimeout(),
		},
	}, runner)
	if err != nil {
		logging.Shutdown()
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Libvirt.Backend, err)
	}

	name := vmName
	if name == "" {
		name = cfg.Session.DefaultVM
	}

	return &env{
		cfg:     cfg,
		user:    u,
		runner:  runner,
		backend: backend,
		closer:  closer,
		session: vm.NewSession(backend, name),
	}, nil
}

func (e *env) engine() *reconcile.Engine {
	return reconcile.NewEngine(e.runner, e.backend, e.session, e.cfg.Settle())
}

func (e *env) close() {
	if err := e.closer.Close(); err != nil {
		logging.Logger().Warn("failed to close backend", "error", err)
	}
	logging.Shutdown()
}
