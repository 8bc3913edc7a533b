package model

import (
	"os"
	"os/exec"
	"time"
)

// ProcessState is one live child's lifecycle state (§3 "Process record").
type ProcessState int

const (
	ProcStarting ProcessState = iota
	ProcRunning
	ProcTerminating
)

func (s ProcessState) String() string {
	switch s {
	case ProcStarting:
		return "starting"
	case ProcRunning:
		return "running"
	case ProcTerminating:
		return "terminating"
	default:
		return "unknown"
	}
}

// Process is one live child of a Program (§3 "Process record"). Grounded on
// the teacher's process.go Process struct, split out of the combined
// Process/Supervisor type so a Program can own numprocs of them instead of
// exactly one.
//
// last_status/status_dirty from the spec are rendered as an *os.ProcessState
// plus a dirty flag, stamped during the dispatcher's drain from the report
// of the child's wait goroutine and cleared during reconciliation — see
// internal/supervisor/lifecycle.go.
type Process struct {
	Pid         int
	RestartCnt  int
	State       ProcessState
	StartedAt   time.Time
	cmd         *exec.Cmd
	exitState   *os.ProcessState
	statusDirty bool
}

// Cmd returns the underlying *exec.Cmd handle for signaling/waiting.
func (p *Process) Cmd() *exec.Cmd { return p.cmd }

// SetCmd attaches the *exec.Cmd handle backing this process record; called
// once by the lifecycle spawn path.
func (p *Process) SetCmd(cmd *exec.Cmd) { p.cmd = cmd }

// MarkDirty stamps the process with its observed exit status (§3
// "status_dirty", §4.4 step 1 "Drain").
func (p *Process) MarkDirty(state *os.ProcessState) {
	p.exitState = state
	p.statusDirty = true
}

// Dirty reports whether this process has an unread exit status.
func (p *Process) Dirty() bool { return p.statusDirty }

// ExitState returns the last observed *os.ProcessState, or nil if none is
// pending.
func (p *Process) ExitState() *os.ProcessState { return p.exitState }

// ClearDirty clears last_status/status_dirty (§4.4 step 2 "clear
// status_dirty, clear last_status").
func (p *Process) ClearDirty() {
	p.exitState = nil
	p.statusDirty = false
}
