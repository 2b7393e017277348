package cmds

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/ragup/pkg/config"
	"github.com/go-go-golems/ragup/pkg/stack"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ProjectRoot string
	Config      string
	Delay       time.Duration
	Timeout     time.Duration
}

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("project-root", "", "Project root holding the stack entrypoints (defaults to current directory)")
	root.PersistentFlags().String("config", "", "Path to config file (defaults to .ragup.yaml under project-root)")
	root.PersistentFlags().Duration("delay", 3*time.Second, "Minimum wait between consecutive launches")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout for readiness probes and shutdown")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	projectRoot, err := cmd.Root().PersistentFlags().GetString("project-root")
	if err != nil {
		return rootOptions{}, err
	}
	if projectRoot == "" {
		projectRoot, err = os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
	}
	projectRoot, err = filepath.Abs(projectRoot)
	if err != nil {
		return rootOptions{}, err
	}

	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath(projectRoot)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(projectRoot, cfgPath)
	}

	delay, err := cmd.Root().PersistentFlags().GetDuration("delay")
	if err != nil {
		return rootOptions{}, err
	}
	timeout, err := cmd.Root().PersistentFlags().GetDuration("timeout")
	if err != nil {
		return rootOptions{}, err
	}
	if timeout <= 0 {
		return rootOptions{}, errors.New("timeout must be > 0")
	}

	return rootOptions{
		ProjectRoot: projectRoot,
		Config:      cfgPath,
		Delay:       delay,
		Timeout:     timeout,
	}, nil
}

// addStackFlags registers the plan-shaping flags shared by up and plan.
func addStackFlags(cmd *cobra.Command) {
	cmd.Flags().Int("backend-port", stack.DefaultBackendPort, "Port for the backend API child")
	cmd.Flags().Int("ui-port", stack.DefaultUIPort, "Port for the UI child")
	cmd.Flags().Bool("tunnel", true, "Include the optional tunnel child")
	cmd.Flags().String("tunnel-exe", stack.DefaultTunnelExe, "Executable for the tunnel child")
	cmd.Flags().String("tunnel-token", "", "Tunnel auth token; registered before the tunnel starts when long enough to be real")
	cmd.Flags().Bool("probe-ready", false, "TCP-probe each child's port after the inter-launch delay")
}

func getStackOptions(cmd *cobra.Command, opts rootOptions) (stack.Options, error) {
	backendPort, err := cmd.Flags().GetInt("backend-port")
	if err != nil {
		return stack.Options{}, err
	}
	uiPort, err := cmd.Flags().GetInt("ui-port")
	if err != nil {
		return stack.Options{}, err
	}
	tunnel, err := cmd.Flags().GetBool("tunnel")
	if err != nil {
		return stack.Options{}, err
	}
	tunnelExe, err := cmd.Flags().GetString("tunnel-exe")
	if err != nil {
		return stack.Options{}, err
	}
	tunnelToken, err := cmd.Flags().GetString("tunnel-token")
	if err != nil {
		return stack.Options{}, err
	}
	probeReady, err := cmd.Flags().GetBool("probe-ready")
	if err != nil {
		return stack.Options{}, err
	}

	return stack.Options{
		ProjectRoot:  opts.ProjectRoot,
		BackendPort:  backendPort,
		UIPort:       uiPort,
		Tunnel:       tunnel,
		TunnelExe:    tunnelExe,
		TunnelToken:  tunnelToken,
		ProbeReady:   probeReady,
		ReadyTimeout: opts.Timeout,
	}, nil
}
