// Package supervisor is the supervision engine: the C3 child lifecycle, the
// C4 event-loop dispatcher, and the C6 reload reconciler described in
// SPEC_FULL.md §4.3/§4.4/§4.6, deliberately kept together in one package
// because the dispatcher pass is what makes lifecycle and reload outcomes
// observable in a fixed order (SPEC_FULL.md §2.1: "the dispatcher pass is
// what makes reload and lifecycle decisions observable and ordered").
//
// Grounded on the teacher's supervisor.go (map-of-processes, signal.Notify
// channel, select-based Run loop, non-blocking reap, restart backoff) and
// process.go (Start/Signal/Wait on os/exec + syscall.SysProcAttr), expanded
// from one process per program to numprocs, and from a bare restart loop to
// the full exit-classification + restart-decision + timer-queue machinery of
// SPEC_FULL.md §4.2/§4.3.
//
// Exit notification rendering: rather than the teacher's single-goroutine
// WNOHANG poll (syscall.Wait4(-1, ..., WNOHANG, nil)), every spawned child is
// given its own short-lived goroutine that blocks on (*os.Process).Wait() and
// posts the resulting *os.ProcessState on a shared channel. This is the
// reading SPEC_FULL.md §3.1 calls for ("reuse Go's own process-state
// decoding") taken to its natural conclusion: os.Process.Wait() is the only
// supported way to obtain a real *os.ProcessState, and WNOHANG polling would
// have to reconstruct one from a raw wait status, which the os package does
// not expose a public constructor for. The dispatcher still only ever reads
// this channel non-blockingly (drain) or, for `exit`/delete, blockingly and
// filtered to one program — so the "never blocks except on line-read and
// exit's waitpid" ordering guarantee (§5) holds exactly.
//
// Known gap versus the source: Go's (*os.Process).Wait() does not support
// WUNTRACED, so a stopped (SIGSTOP'd) child is never observed as `stopped`
// the way §4.3's exit classification describes; such a child simply remains
// outstanding until it exits or is killed. This is a real limitation of
// os/exec, not an oversight, and is recorded in DESIGN.md rather than worked
// around with a fabricated polling layer.
package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/kornnellio/taskmaster/internal/model"
	"github.com/kornnellio/taskmaster/internal/timerqueue"
)

// exitReport is one child's terminal wait result, posted by its dedicated
// wait goroutine.
type exitReport struct {
	pid   int
	state *os.ProcessState
}

// spawnMu serializes Start() calls process-wide: os/exec has no per-child
// umask hook, so the umask must be set immediately before Start() and
// restored immediately after, same as several pack supervisor examples
// (k0s, roost) that serialize spawns around the same os/exec limitation.
var spawnMu sync.Mutex

// Supervisor owns every piece of mutable state described in SPEC_FULL.md §3's
// "Global supervisor state" and is the single type every dispatcher-goroutine
// method may mutate (§5.1: single-goroutine ownership replaces signal
// masking).
type Supervisor struct {
	programs   *model.ProgramList
	timers     *timerqueue.Queue
	logger     *logrus.Logger
	configPath string

	exitCh  chan exitReport
	pending []exitReport

	exitLatch bool
}

// New constructs a Supervisor from a validated program list (C1 "construct
// program from a validated definition", applied across the whole list), opens
// each program's stdio log files, and autostarts the programs that ask for
// it.
func New(defs []model.Definition, logger *logrus.Logger, configPath string) (*Supervisor, error) {
	s := &Supervisor{
		programs:   model.NewProgramList(),
		timers:     timerqueue.New(),
		logger:     logger,
		configPath: configPath,
		exitCh:     make(chan exitReport, 64),
	}

	for _, def := range defs {
		p := model.NewProgram(def)
		if err := s.openLogs(p); err != nil {
			return nil, fmt.Errorf("supervisor: program %q: %w", def.Name, err)
		}
		s.programs.Append(p)
	}

	s.programs.Range(func(p *model.Program) bool {
		if p.Def.AutoStart {
			s.launchProgram(p)
		}
		return true
	})

	return s, nil
}

// openLogs opens (or creates) a program's std_out/std_err redirection
// targets, append mode, mode 0644 (§6.2). os.OpenFile already sets
// close-on-exec on Linux, so no extra unix.CloseOnExec call is needed; the
// descriptor os/exec dup2's into the child's fd 1/2 is a fresh dup anyway.
func (s *Supervisor) openLogs(p *model.Program) error {
	out, err := os.OpenFile(p.Def.StdOut, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open std_out %s: %w", p.Def.StdOut, err)
	}
	errf, err := os.OpenFile(p.Def.StdErr, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		out.Close()
		return fmt.Errorf("open std_err %s: %w", p.Def.StdErr, err)
	}
	p.LogOutFile = out
	p.LogErrFile = errf
	return nil
}

// ConfigPath returns the configuration source path passed at construction,
// used by the `reload` command with no arguments (§4.5).
func (s *Supervisor) ConfigPath() string { return s.configPath }

// ProgramExists reports whether name is a currently-known, non-deleted
// program; it is the name-validation hook the command parser (C5) needs at
// parse time (§4.5 "Name tokens are matched against the full program list at
// parse time").
func (s *Supervisor) ProgramExists(name string) bool {
	p, ok := s.programs.Get(name)
	return ok && p.PendingEvent != model.EventDelete
}

// ProgramNames returns the current completion vocabulary's program half
// (§6 "Completion set is the command verbs plus the names of non-deleted
// programs").
func (s *Supervisor) ProgramNames() []string { return s.programs.Names() }

// ExitRequested reports whether the `exit` command has latched the exit
// latch (§3 "exit latch").
func (s *Supervisor) ExitRequested() bool { return s.exitLatch }

// spawnCmd builds the *exec.Cmd for one process slot of p, sharing its
// process group per §4.3.1: Pgid: 0 for the first child of a program (the
// kernel assigns pgid = child pid), Pgid: p.Pgid for every subsequent slot so
// all numprocs siblings share one group.
func spawnCmd(p *model.Program) *exec.Cmd {
	cmd := exec.Command(p.Def.Cmd[0], p.Def.Cmd[1:]...)
	cmd.Env = p.Def.Env
	cmd.Dir = p.Def.WorkingDir
	cmd.Stdout = p.LogOutFile
	cmd.Stderr = p.LogErrFile
	// exec.Cmd.SysProcAttr is fixed by os/exec to *syscall.SysProcAttr; there
	// is no x/sys/unix replacement for this particular field, unlike the
	// signal/ioctl primitives used elsewhere in this codebase.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: p.Pgid}
	return cmd
}

// startCmd runs cmd.Start() under the process-wide umask mutex and returns
// Start's error, mirroring §4.3.1's documented umask race window.
func startCmd(cmd *exec.Cmd, umask uint32) error {
	spawnMu.Lock()
	old := unix.Umask(int(umask))
	err := cmd.Start()
	unix.Umask(old)
	spawnMu.Unlock()
	return err
}

// watchExit spawns the dedicated wait goroutine for a freshly started child.
func (s *Supervisor) watchExit(cmd *exec.Cmd) {
	pid := cmd.Process.Pid
	go func() {
		state, _ := cmd.Process.Wait()
		s.exitCh <- exitReport{pid: pid, state: state}
	}()
}

// findByPid locates the program and process record owning pid, across every
// program (a child's pid is not scoped to any one program a priori).
func (s *Supervisor) findByPid(pid int) (*model.Program, *model.Process, bool) {
	var prog *model.Program
	var proc *model.Process
	s.programs.Range(func(p *model.Program) bool {
		if pr, ok := p.FindByPid(pid); ok {
			prog, proc = p, pr
			return false
		}
		return true
	})
	return prog, proc, prog != nil
}
