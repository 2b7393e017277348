package launch

import "time"

// Spec describes one child process to start. A Spec is immutable once
// constructed and is consumed exactly once by Supervisor.Launch; the
// supervisor keeps no reference to it afterwards.
type Spec struct {
	Label   string            `json:"label"`
	Dir     string            `json:"dir"`
	Command []string          `json:"command"`
	Env     map[string]string `json:"env,omitempty"`

	// Setup is run to completion in Dir before Command is started.
	// Used for one-shot registration steps (tunnel auth token).
	Setup []string `json:"setup,omitempty"`

	// Optional specs report launch failures as warnings instead of
	// aborting the rest of the run.
	Optional bool `json:"optional,omitempty"`

	// Ready, when set, is polled after the inter-launch delay so the
	// next spec starts against a bound port rather than a fixed guess.
	Ready *ReadyCheck `json:"ready,omitempty"`
}

// ReadyCheck is a bounded TCP poll against host:port.
type ReadyCheck struct {
	Address string        `json:"address"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

type Status string

const (
	StatusLaunched Status = "launched"
	StatusFailed   Status = "failed"
)

// Result records the outcome of launching a single Spec.
type Result struct {
	Label     string    `json:"label"`
	Status    Status    `json:"status"`
	PID       int       `json:"pid,omitempty"`
	Err       error     `json:"-"`
	Error     string    `json:"error,omitempty"`
	StdoutLog string    `json:"stdout_log,omitempty"`
	StderrLog string    `json:"stderr_log,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}
