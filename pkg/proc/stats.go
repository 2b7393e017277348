// Package proc reads per-process statistics from /proc for the status
// command.
package proc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Stats struct {
	PID        int     `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryMB   int64   `json:"memory_mb"`
	State      string  `json:"state"`
	Threads    int     `json:"threads"`
}

type procStat struct {
	utime   uint64
	stime   uint64
	state   byte
	threads int
	rss     int64 // pages
}

type sample struct {
	utime uint64
	stime uint64
	at    time.Time
}

// Tracker computes CPU percentages between successive ReadStats calls
// for the same PID.
type Tracker struct {
	prev map[int]sample
}

func NewTracker() *Tracker {
	return &Tracker{prev: make(map[int]sample)}
}

// ReadStats reads stats for pid. With a non-nil tracker, CPUPercent is
// derived from the jiffy delta since the previous call; the first call
// for a PID reports zero.
func ReadStats(pid int, tracker *Tracker) (*Stats, error) {
	if pid <= 0 {
		return nil, errors.New("invalid PID")
	}
	ps, err := readProcStat(pid)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		PID:      pid,
		MemoryMB: ps.rss * int64(os.Getpagesize()) / (1024 * 1024),
		State:    string(ps.state),
		Threads:  ps.threads,
	}

	if tracker != nil {
		now := time.Now()
		total := ps.utime + ps.stime
		if prev, ok := tracker.prev[pid]; ok {
			if elapsed := now.Sub(prev.at).Seconds(); elapsed > 0 {
				// Jiffies to seconds at the standard Linux 100 Hz.
				cpuSeconds := float64(total-(prev.utime+prev.stime)) / 100.0
				stats.CPUPercent = cpuSeconds / elapsed * 100.0
			}
		}
		tracker.prev[pid] = sample{utime: ps.utime, stime: ps.stime, at: now}
	}

	return stats, nil
}

func readProcStat(pid int) (*procStat, error) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return nil, errors.Wrap(err, "read stat file")
	}

	// comm may contain spaces and parens; fields start after the last ')'.
	content := string(data)
	closeParen := strings.LastIndex(content, ")")
	if closeParen < 0 {
		return nil, errors.New("malformed stat file: no closing paren")
	}
	fields := strings.Fields(strings.TrimSpace(content[closeParen+1:]))
	if len(fields) < 22 {
		return nil, errors.Errorf("malformed stat file: expected 22+ fields, got %d", len(fields))
	}

	ps := &procStat{state: fields[0][0]}
	if ps.utime, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse utime")
	}
	if ps.stime, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse stime")
	}
	if ps.threads, err = strconv.Atoi(fields[17]); err != nil {
		return nil, errors.Wrap(err, "parse num_threads")
	}
	if ps.rss, err = strconv.ParseInt(fields[21], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse rss")
	}
	return ps, nil
}
