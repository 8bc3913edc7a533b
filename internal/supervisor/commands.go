package supervisor

import (
	"fmt"
	"strings"

	"github.com/kornnellio/taskmaster/internal/model"
)

// Start implements the `start` verb for one program (§4.5): launches it
// subject to proc_cnt < numprocs. Idempotent per §8: if the program is
// already fully started this is a no-op, with no spawn and no timer arm.
func (s *Supervisor) Start(name string) {
	p, ok := s.programs.Get(name)
	if !ok {
		return
	}
	if p.ProcCount() >= p.Def.NumProcs {
		return
	}
	s.launchProgram(p)
}

// Stop implements the `stop` verb (§4.5): signal_stop the named program.
// Returns false if the program has no live children ("no-op", §8).
func (s *Supervisor) Stop(name string) bool {
	p, ok := s.programs.Get(name)
	if !ok {
		return false
	}
	return s.signalStop(p)
}

// Restart implements the `restart` verb (§4.5): latches pending_event and
// signals a stop; the next dispatcher pass relaunches once the program is
// idle (§4.3's restart decision does not apply here — this is a fresh
// launch_program once proc_cnt reaches zero, per §4.4 step 3).
func (s *Supervisor) Restart(name string) {
	p, ok := s.programs.Get(name)
	if !ok {
		return
	}
	p.PendingEvent = model.EventRestart
	s.signalStop(p)
}

// Exit implements the `exit` verb (§4.5, and DESIGN.md's Open Question
// decision to keep the source's synchronous shutdown): signal_stop every
// program, synchronously wait all of them out, then latch the exit latch.
func (s *Supervisor) Exit() {
	var snapshot []*model.Program
	s.programs.Range(func(p *model.Program) bool {
		snapshot = append(snapshot, p)
		return true
	})

	for _, p := range snapshot {
		s.signalStop(p)
	}
	for _, p := range snapshot {
		s.waitAllSync(p)
		p.Close()
	}
	s.exitLatch = true
}

// Status implements the `status` verb (§4.5). With no names it summarizes
// every non-deleted program; with names it additionally enumerates each
// child's pid, state, and restart counter.
func (s *Supervisor) Status(names []string) string {
	var b strings.Builder
	detail := len(names) > 0

	emit := func(p *model.Program) {
		b.WriteString(p.StatusLine())
		b.WriteByte('\n')
		if !detail {
			return
		}
		for _, proc := range p.Processes() {
			fmt.Fprintf(&b, "    pid %d: %s, restarts=%d\n", proc.Pid, proc.State, proc.RestartCnt-1)
		}
	}

	if !detail {
		s.programs.Range(func(p *model.Program) bool {
			if p.PendingEvent != model.EventDelete {
				emit(p)
			}
			return true
		})
		return b.String()
	}

	for _, name := range names {
		p, ok := s.programs.Get(name)
		if !ok || p.PendingEvent == model.EventDelete {
			fmt.Fprintf(&b, "%s: unknown program\n", name)
			continue
		}
		emit(p)
	}
	return b.String()
}
