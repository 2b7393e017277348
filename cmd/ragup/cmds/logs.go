package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-go-golems/ragup/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newLogsCmd() *cobra.Command {
	var follow bool
	var tailLines int

	cmd := &cobra.Command{
		Use:   "logs [child...]",
		Short: "Show recorded children's logs; follow with -f",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			st, err := state.Load(opts.ProjectRoot)
			if err != nil {
				return err
			}

			selected := st.Children
			if len(args) > 0 {
				want := map[string]bool{}
				for _, a := range args {
					want[a] = true
				}
				selected = nil
				for _, c := range st.Children {
					if want[c.Label] {
						selected = append(selected, c)
					}
				}
				if len(selected) == 0 {
					return errors.Errorf("no recorded child matches %v", args)
				}
			}

			out := cmd.OutOrStdout()
			for _, c := range selected {
				for _, path := range []string{c.StdoutLog, c.StderrLog} {
					if path == "" {
						continue
					}
					lines, err := state.TailLines(path, tailLines, 2<<20)
					if err != nil {
						continue
					}
					for _, line := range lines {
						_, _ = fmt.Fprintf(out, "%s | %s\n", c.Label, line)
					}
				}
			}

			if !follow {
				return nil
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			for _, c := range selected {
				for _, path := range []string{c.StdoutLog, c.StderrLog} {
					if path == "" {
						continue
					}
					label, path := c.Label, path
					g.Go(func() error {
						return followFile(ctx, out, label, path)
					})
				}
			}
			return g.Wait()
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing appended lines")
	cmd.Flags().IntVar(&tailLines, "tail-lines", 20, "How many trailing lines to print per log")
	return cmd
}

// followFile polls path for appended data and writes each new line to w
// prefixed with the child label.
func followFile(ctx context.Context, w io.Writer, label, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open log")
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return errors.Wrap(err, "seek log")
	}

	r := bufio.NewReader(f)
	t := time.NewTicker(300 * time.Millisecond)
	defer t.Stop()

	for {
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				_, _ = fmt.Fprintf(w, "%s | %s", label, line)
			}
			if err != nil {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
