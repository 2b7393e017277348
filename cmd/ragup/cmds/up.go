package cmds

import (
	"fmt"
	"os"
	"time"

	"github.com/go-go-golems/ragup/pkg/config"
	"github.com/go-go-golems/ragup/pkg/launch"
	"github.com/go-go-golems/ragup/pkg/render"
	"github.com/go-go-golems/ragup/pkg/stack"
	"github.com/go-go-golems/ragup/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newUpCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Launch the stack: backend, UI, then the optional tunnel",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			stackOpts, err := getStackOptions(cmd, opts)
			if err != nil {
				return err
			}

			if _, err := os.Stat(state.StatePath(opts.ProjectRoot)); err == nil {
				if !force {
					return errors.New("state exists; run ragup down first or use --force")
				}
				log.Info().Msg("existing state found; stopping first (--force)")
				if err := stopFromState(cmd.Context(), opts); err != nil {
					return err
				}
			}

			cfg, err := config.LoadOptional(opts.Config)
			if err != nil {
				return err
			}

			specs, err := stack.Plan(stackOpts, cfg)
			if err != nil {
				return err
			}

			sup := launch.New(launch.Options{
				LogsDir:          state.LogsDir(opts.ProjectRoot),
				InterLaunchDelay: opts.Delay,
				ReadyTimeout:     opts.Timeout,
			})

			results, runErr := sup.Run(cmd.Context(), specs)

			st := &state.State{
				ProjectRoot: opts.ProjectRoot,
				CreatedAt:   time.Now(),
				Children:    []state.ChildRecord{},
			}
			for i, res := range results {
				if res.Status != launch.StatusLaunched {
					continue
				}
				st.Children = append(st.Children, state.ChildRecord{
					Label:     res.Label,
					PID:       res.PID,
					Command:   specs[i].Command,
					Dir:       specs[i].Dir,
					Env:       state.SanitizeEnv(specs[i].Env),
					Optional:  specs[i].Optional,
					StdoutLog: res.StdoutLog,
					StderrLog: res.StderrLog,
					StartedAt: res.StartedAt,
				})
			}
			if len(st.Children) > 0 {
				if err := state.Save(opts.ProjectRoot, st); err != nil {
					return err
				}
			}

			if runErr != nil {
				// Launched children stay up and are recorded; `down`
				// cleans them.
				return runErr
			}

			theme := render.DefaultTheme()
			for i, res := range results {
				switch res.Status {
				case launch.StatusLaunched:
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Up.Render(fmt.Sprintf("%-8s pid %d", res.Label, res.PID)))
				case launch.StatusFailed:
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Warn.Render(fmt.Sprintf("%-8s failed: %s", res.Label, res.Error)))
					if specs[i].Label == "tunnel" {
						_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Muted.Render(
							"tunnel could not start; install ngrok or pass --tunnel-exe and --tunnel-token"))
					}
				}
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Muted.Render("ui: http://127.0.0.1:"+
				fmt.Sprint(stackOpts.UIPort)+"  backend: "+stack.APIURL(stackOpts.BackendPort)))

			log.Info().Int("children", len(st.Children)).Msg("up complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Stop existing state before starting")
	addStackFlags(cmd)
	return cmd
}
