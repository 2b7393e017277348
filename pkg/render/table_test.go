package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	theme := DefaultTheme()
	out := Table(theme,
		[]Column{{Header: "CHILD", Width: 10}, {Header: "PID", Width: 8}},
		[]Row{
			{Cells: []string{"backend", "1234"}, Style: &theme.Up},
			{Cells: []string{"tunnel", "0"}, Style: &theme.Down},
		})

	require.Contains(t, out, "CHILD")
	require.Contains(t, out, "backend")
	require.Contains(t, out, "tunnel")
	require.Len(t, strings.Split(out, "\n"), 3)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "exactly", truncate("exactly", 7))
	require.Equal(t, "toolong…", truncate("toolongvalue", 8))
}
