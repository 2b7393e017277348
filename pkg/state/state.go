package state

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

const (
	StateDirName  = ".ragup"
	StateFilename = "state.json"
	LogsDirName   = "logs"
)

// State records the children launched by the last `up` so that status,
// logs and down can find them again. It is a record, not a handle: the
// launcher holds no open resources on the children.
type State struct {
	ProjectRoot string        `json:"project_root"`
	CreatedAt   time.Time     `json:"created_at"`
	Children    []ChildRecord `json:"children"`
}

type ChildRecord struct {
	Label     string            `json:"label"`
	PID       int               `json:"pid"`
	Command   []string          `json:"command"`
	Dir       string            `json:"dir"`
	Env       map[string]string `json:"env,omitempty"`
	Optional  bool              `json:"optional,omitempty"`
	StdoutLog string            `json:"stdout_log,omitempty"`
	StderrLog string            `json:"stderr_log,omitempty"`
	StartedAt time.Time         `json:"started_at,omitempty"`
}

func StatePath(projectRoot string) string {
	return filepath.Join(projectRoot, StateDirName, StateFilename)
}

func LogsDir(projectRoot string) string {
	return filepath.Join(projectRoot, StateDirName, LogsDirName)
}

func Load(projectRoot string) (*State, error) {
	b, err := os.ReadFile(StatePath(projectRoot))
	if err != nil {
		return nil, errors.Wrap(err, "read state")
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "parse state json")
	}
	return &s, nil
}

func Save(projectRoot string, s *State) error {
	if s == nil {
		return errors.New("nil state")
	}
	if err := os.MkdirAll(filepath.Dir(StatePath(projectRoot)), 0o755); err != nil {
		return errors.Wrap(err, "mkdir state dir")
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	if err := os.WriteFile(StatePath(projectRoot), b, 0o644); err != nil {
		return errors.Wrap(err, "write state")
	}
	return nil
}

func Remove(projectRoot string) error {
	if err := os.Remove(StatePath(projectRoot)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "remove state")
	}
	return nil
}

// ProcessAlive reports whether pid refers to a live, non-zombie
// process. EPERM counts as alive: the process exists but belongs to
// someone else.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if isZombie(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return stderrors.Is(err, syscall.EPERM)
}

func isZombie(pid int) bool {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// Format: pid (comm) state ... — the state char follows the last ')'.
	i := bytes.LastIndexByte(b, ')')
	if i < 0 {
		return false
	}
	fields := bytes.Fields(bytes.TrimSpace(b[i+1:]))
	if len(fields) < 1 || len(fields[0]) < 1 {
		return false
	}
	return fields[0][0] == 'Z'
}
