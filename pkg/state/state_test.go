package state

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	root := t.TempDir()

	st := &State{
		ProjectRoot: root,
		CreatedAt:   time.Now().Truncate(time.Second),
		Children: []ChildRecord{
			{
				Label:     "backend",
				PID:       1234,
				Command:   []string{"uvicorn", "app:app", "--port", "7861"},
				Dir:       root,
				StdoutLog: filepath.Join(root, ".ragup", "logs", "backend.stdout.log"),
				StartedAt: time.Now().Truncate(time.Second),
			},
			{Label: "tunnel", PID: 5678, Optional: true},
		},
	}
	require.NoError(t, Save(root, st))

	loaded, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, st.ProjectRoot, loaded.ProjectRoot)
	require.Len(t, loaded.Children, 2)
	require.Equal(t, st.Children[0].Command, loaded.Children[0].Command)
	require.True(t, loaded.Children[1].Optional)
}

func TestRemoveIsIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Remove(root))

	require.NoError(t, Save(root, &State{ProjectRoot: root, CreatedAt: time.Now()}))
	require.NoError(t, Remove(root))
	require.NoError(t, Remove(root))

	_, err := Load(root)
	require.Error(t, err)
}

func TestProcessAlive(t *testing.T) {
	require.False(t, ProcessAlive(0))
	require.False(t, ProcessAlive(-1))
	require.True(t, ProcessAlive(os.Getpid()))

	cmd := exec.Command("bash", "-lc", "true")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	require.NoError(t, cmd.Wait())

	deadline := time.Now().Add(2 * time.Second)
	for ProcessAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	require.False(t, ProcessAlive(pid))
}

func TestSanitizeEnvRedactsToken(t *testing.T) {
	env := map[string]string{
		"RAG_API_URL":   "http://127.0.0.1:7861/ask",
		"NGROK_TOKEN":   "2abcDEF4567890xyz",
		"api_key":       "sk-something",
		"PLAIN_SETTING": "value",
	}
	out := SanitizeEnv(env)
	require.Equal(t, "http://127.0.0.1:7861/ask", out["RAG_API_URL"])
	require.Equal(t, "[REDACTED]", out["NGROK_TOKEN"])
	require.Equal(t, "[REDACTED]", out["api_key"])
	require.Equal(t, "value", out["PLAIN_SETTING"])

	// Input untouched.
	require.Equal(t, "2abcDEF4567890xyz", env["NGROK_TOKEN"])

	require.Nil(t, SanitizeEnv(nil))
}

func TestTailLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644))

	lines, err := TailLines(path, 2, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"three", "four"}, lines)

	lines, err = TailLines(path, 10, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three", "four"}, lines)

	// Byte cap drops the partial leading line.
	lines, err = TailLines(path, 10, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"four"}, lines)

	_, err = TailLines(filepath.Join(t.TempDir(), "missing"), 2, 0)
	require.Error(t, err)
}
