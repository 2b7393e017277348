package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/ragup/pkg/config"
	"github.com/go-go-golems/ragup/pkg/stack"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved launch plan without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			stackOpts, err := getStackOptions(cmd, opts)
			if err != nil {
				return err
			}

			cfg, err := config.LoadOptional(opts.Config)
			if err != nil {
				return err
			}

			specs, err := stack.Plan(stackOpts, cfg)
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(map[string]any{"children": specs}, "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal plan")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	addStackFlags(cmd)
	return cmd
}
