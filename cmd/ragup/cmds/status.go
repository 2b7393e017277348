package cmds

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-go-golems/ragup/pkg/proc"
	"github.com/go-go-golems/ragup/pkg/render"
	"github.com/go-go-golems/ragup/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool
	var tailLines int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show liveness and resource usage of recorded children",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			st, err := state.Load(opts.ProjectRoot)
			if err != nil {
				return err
			}

			type childStatus struct {
				Label      string   `json:"label"`
				PID        int      `json:"pid"`
				Alive      bool     `json:"alive"`
				CPUPercent float64  `json:"cpu_percent,omitempty"`
				MemoryMB   int64    `json:"memory_mb,omitempty"`
				Stdout     string   `json:"stdout_log,omitempty"`
				Stderr     string   `json:"stderr_log,omitempty"`
				StderrTail []string `json:"stderr_tail,omitempty"`
			}

			// CPU% needs two samples per PID.
			tracker := proc.NewTracker()
			for _, c := range st.Children {
				_, _ = proc.ReadStats(c.PID, tracker)
			}
			time.Sleep(200 * time.Millisecond)

			var children []childStatus
			for _, c := range st.Children {
				cs := childStatus{
					Label:  c.Label,
					PID:    c.PID,
					Alive:  state.ProcessAlive(c.PID),
					Stdout: c.StdoutLog,
					Stderr: c.StderrLog,
				}
				if cs.Alive {
					if stats, err := proc.ReadStats(c.PID, tracker); err == nil {
						cs.CPUPercent = stats.CPUPercent
						cs.MemoryMB = stats.MemoryMB
					}
				} else if tailLines > 0 {
					if lines, err := state.TailLines(c.StderrLog, tailLines, 2<<20); err == nil {
						cs.StderrTail = lines
					}
				}
				children = append(children, cs)
			}

			if asJSON {
				b, err := json.MarshalIndent(map[string]any{"children": children}, "", "  ")
				if err != nil {
					return errors.Wrap(err, "marshal status")
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}

			theme := render.DefaultTheme()
			cols := []render.Column{
				{Header: "CHILD", Width: 10},
				{Header: "PID", Width: 8},
				{Header: "STATE", Width: 8},
				{Header: "CPU%", Width: 8},
				{Header: "MEM(MB)", Width: 8},
			}
			var rows []render.Row
			for _, c := range children {
				style := theme.Up
				label := "up"
				cpu, mem := fmt.Sprintf("%.1f", c.CPUPercent), fmt.Sprint(c.MemoryMB)
				if !c.Alive {
					style = theme.Down
					label = "down"
					cpu, mem = "-", "-"
				}
				rows = append(rows, render.Row{
					Cells: []string{c.Label, fmt.Sprint(c.PID), label, cpu, mem},
					Style: &style,
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), render.Table(theme, cols, rows))

			for _, c := range children {
				if c.Alive || len(c.StderrTail) == 0 {
					continue
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Warn.Render(c.Label+" stderr:"))
				for _, line := range c.StderrTail {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), theme.Muted.Render("  "+line))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of the table")
	cmd.Flags().IntVar(&tailLines, "tail-lines", 25, "How many stderr lines to include for dead children")
	return cmd
}
