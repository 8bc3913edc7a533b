package model

import (
	"fmt"
	"os"
)

// ProcessAction is returned by a RangeProcesses callback to say whether the
// visited Process record survives the pass. This is the Go rendering of
// Design Notes §9's "process iteration expressed as a visitor with
// mid-iteration removal support" — callbacks that want to "replace" a record
// simply mutate the *Process in place (Go pointers make the spec's
// slot-rewiring unnecessary).
type ProcessAction int

const (
	ActionKeep ProcessAction = iota
	ActionRemove
)

// Program is a program's runtime record (§3 "Program runtime state"),
// combining the operator-declared Definition with live state: open log
// files, the adopted process-group id, the process list, and the latched
// reload/command Event.
//
// Grounded on the teacher's Process+Supervisor combination, split so one
// Program owns 1..numprocs live Process records instead of the teacher's
// 1:1 process-per-definition model.
type Program struct {
	Def Definition

	LogOutFile *os.File
	LogErrFile *os.File

	Pgid int

	PendingEvent Event

	processes []*Process
}

// NewProgram constructs a Program from a validated Definition (C1
// "construct program from a validated definition").
func NewProgram(def Definition) *Program {
	return &Program{Def: def, PendingEvent: EventNone}
}

// ProcCount returns proc_cnt (§3 invariant 1: "proc_cnt == length(proc_head)").
func (p *Program) ProcCount() int { return len(p.processes) }

// Processes returns the live process records in insertion order. Callers
// must not retain the slice past the next mutating call.
func (p *Program) Processes() []*Process { return p.processes }

// AddProcess appends a freshly spawned Process record (C3 spawn step 3).
func (p *Program) AddProcess(proc *Process) {
	p.processes = append(p.processes, proc)
}

// RangeProcesses visits every live process, in order, tolerating the
// callback removing the current record (§4.1 "the iterator must tolerate
// the callback deleting or replacing the current record").
func (p *Program) RangeProcesses(fn func(*Process) ProcessAction) {
	kept := p.processes[:0]
	for _, proc := range p.processes {
		if fn(proc) != ActionRemove {
			kept = append(kept, proc)
		}
	}
	p.processes = kept
}

// Dirty reports whether at least one process has unread exit status (§3
// "dirty: set when at least one child record has unread status").
func (p *Program) Dirty() bool {
	for _, proc := range p.processes {
		if proc.Dirty() {
			return true
		}
	}
	return false
}

// FindByPid returns the live process with the given pid, if any.
func (p *Program) FindByPid(pid int) (*Process, bool) {
	for _, proc := range p.processes {
		if proc.Pid == pid {
			return proc, true
		}
	}
	return nil, false
}

// Close releases the program's open log file descriptors (§3 invariant 7:
// "the program that owns it is the sole closer").
func (p *Program) Close() error {
	var firstErr error
	if p.LogOutFile != nil {
		if err := p.LogOutFile.Close(); err != nil {
			firstErr = err
		}
		p.LogOutFile = nil
	}
	if p.LogErrFile != nil {
		if err := p.LogErrFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.LogErrFile = nil
	}
	return firstErr
}

// StatusLine renders the §4.5 `status` summary line:
// "- [pgid] name: <live/numprocs> started".
func (p *Program) StatusLine() string {
	return fmt.Sprintf("- [%d] %s: %d/%d started", p.Pgid, p.Def.Name, p.ProcCount(), p.Def.NumProcs)
}
