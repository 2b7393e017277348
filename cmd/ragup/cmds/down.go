package cmds

import (
	"context"

	"github.com/go-go-golems/ragup/pkg/launch"
	"github.com/go-go-golems/ragup/pkg/state"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop recorded children and remove the state file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			return stopFromState(cmd.Context(), opts)
		},
	}
}

func stopFromState(ctx context.Context, opts rootOptions) error {
	st, err := state.Load(opts.ProjectRoot)
	if err != nil {
		return err
	}

	stopCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	for _, child := range st.Children {
		if child.PID <= 0 {
			continue
		}
		if err := launch.TerminateGroup(stopCtx, child.PID, opts.Timeout); err != nil {
			log.Warn().Err(err).Str("child", child.Label).Int("pid", child.PID).Msg("failed to stop child")
			continue
		}
		log.Info().Str("child", child.Label).Int("pid", child.PID).Msg("child stopped")
	}

	return state.Remove(opts.ProjectRoot)
}
