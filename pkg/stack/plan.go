// Package stack builds the ordered launch plan for the local RAG dev
// stack: backend API, UI, and optional tunnel.
package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-go-golems/ragup/pkg/config"
	"github.com/go-go-golems/ragup/pkg/launch"
	"github.com/pkg/errors"
)

const (
	DefaultBackendPort = 7861
	DefaultUIPort      = 7862
	DefaultTunnelExe   = "ngrok"

	// APIURLEnv is set on the UI child so it can reach the backend.
	APIURLEnv = "RAG_API_URL"

	backendEntrypoint = "app.py"
	uiEntrypoint      = "ui_streamlit.py"

	// Tokens this short cannot be real ngrok auth tokens; skip the
	// registration step rather than fail it.
	minTokenLen = 11
)

type Options struct {
	ProjectRoot  string
	BackendPort  int
	UIPort       int
	Tunnel       bool
	TunnelExe    string
	TunnelToken  string
	ProbeReady   bool
	ReadyTimeout time.Duration
}

// APIURL is the backend endpoint handed to the UI child. The backend
// exposes a single POST endpoint at /ask on loopback.
func APIURL(backendPort int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/ask", backendPort)
}

// Plan resolves opts and cfg into the ordered launch sequence:
// backend, ui, and (unless disabled) tunnel. Fatal precondition
// failures — missing project root or missing stock entrypoints — are
// reported here, before anything launches.
func Plan(opts Options, cfg *config.File) ([]launch.Spec, error) {
	if cfg == nil {
		cfg = &config.File{}
	}
	if opts.BackendPort <= 0 {
		opts.BackendPort = DefaultBackendPort
	}
	if opts.UIPort <= 0 {
		opts.UIPort = DefaultUIPort
	}
	if opts.TunnelExe == "" {
		opts.TunnelExe = DefaultTunnelExe
	}
	if opts.BackendPort > 65535 || opts.UIPort > 65535 {
		return nil, errors.Errorf("port out of range: backend=%d ui=%d", opts.BackendPort, opts.UIPort)
	}
	if opts.BackendPort == opts.UIPort {
		return nil, errors.Errorf("backend and ui cannot share port %d", opts.BackendPort)
	}

	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, errors.Wrap(err, "resolve project root")
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &launch.PreconditionError{Label: "project", Path: root}
	}

	backend, err := childSpec("backend", root, cfg.Backend, []string{
		"uvicorn", "app:app",
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(opts.BackendPort),
	}, backendEntrypoint)
	if err != nil {
		return nil, err
	}
	if opts.ProbeReady {
		backend.Ready = &launch.ReadyCheck{
			Address: fmt.Sprintf("127.0.0.1:%d", opts.BackendPort),
			Timeout: opts.ReadyTimeout,
		}
	}

	ui, err := childSpec("ui", root, cfg.UI, []string{
		"streamlit", "run", uiEntrypoint,
		"--server.port", strconv.Itoa(opts.UIPort),
		"--server.headless", "true",
	}, uiEntrypoint)
	if err != nil {
		return nil, err
	}
	if ui.Env == nil {
		ui.Env = map[string]string{}
	}
	ui.Env[APIURLEnv] = APIURL(opts.BackendPort)
	if opts.ProbeReady {
		ui.Ready = &launch.ReadyCheck{
			Address: fmt.Sprintf("127.0.0.1:%d", opts.UIPort),
			Timeout: opts.ReadyTimeout,
		}
	}

	specs := []launch.Spec{backend, ui}

	if opts.Tunnel {
		tunnel, err := childSpec("tunnel", root, cfg.Tunnel, []string{
			opts.TunnelExe, "http", strconv.Itoa(opts.UIPort),
		}, "")
		if err != nil {
			return nil, err
		}
		tunnel.Optional = true
		if len(opts.TunnelToken) >= minTokenLen {
			tunnel.Setup = []string{opts.TunnelExe, "config", "add-authtoken", opts.TunnelToken}
		}
		specs = append(specs, tunnel)
	}

	return specs, nil
}

// childSpec resolves one child's spec from its config override or the
// stock argv. entrypoint, when non-empty and the stock argv is in use,
// must exist under the child's dir.
func childSpec(label, root string, c config.Child, stock []string, entrypoint string) (launch.Spec, error) {
	dir := root
	if c.Dir != "" {
		if filepath.IsAbs(c.Dir) {
			dir = c.Dir
		} else {
			dir = filepath.Join(root, c.Dir)
		}
	}

	command := c.Command
	if len(command) == 0 {
		command = stock
		if entrypoint != "" {
			if _, err := os.Stat(filepath.Join(dir, entrypoint)); err != nil {
				return launch.Spec{}, &launch.PreconditionError{
					Label: label,
					Path:  filepath.Join(dir, entrypoint),
				}
			}
		}
	}

	var env map[string]string
	if len(c.Env) > 0 {
		env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			env[k] = v
		}
	}

	return launch.Spec{
		Label:   label,
		Dir:     dir,
		Command: append([]string{}, command...),
		Env:     env,
	}, nil
}
