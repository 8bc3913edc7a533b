package supervisor

import (
	"os"

	"github.com/kornnellio/taskmaster/internal/model"
)

// DispatchPass runs the three-phase reconciliation sequence described in
// §4.4's pgm_notification(): drain observed child exits, reconcile them
// against the restart policy, then run any latched program event. It is
// invoked after every operator command and after every child-exit or timer
// wake (§4.4.1).
func (s *Supervisor) DispatchPass() {
	s.drain()
	s.reconcileAll()
	s.dispatchEvents()
}

// applyExit records one child's observed exit state on its process record
// (§4.4 step 1 "Drain": "stamping status_dirty = true, last_status = status").
func (s *Supervisor) applyExit(r exitReport) {
	_, proc, ok := s.findByPid(r.pid)
	if !ok {
		return // already reaped via a synchronous wait (exit/delete), or unknown pid
	}
	proc.MarkDirty(r.state)
}

// drain empties any buffered synchronous-wait leftovers first, then drains
// the exit-report channel non-blockingly — the Go rendering of §4.4 step 1's
// `waitpid(-1, &status, WNOHANG) loop ... until no more ready children`.
func (s *Supervisor) drain() {
	for _, r := range s.pending {
		s.applyExit(r)
	}
	s.pending = s.pending[:0]

	for {
		select {
		case r := <-s.exitCh:
			s.applyExit(r)
		default:
			return
		}
	}
}

// reconcileAll applies the exit classification and restart decision to every
// dirty process of every program (§4.4 step 2 "Reconcile"), then drains any
// process records removed in the pass and re-triggers an outstanding stop
// timer if the program went idle as a result (§4.3's "proc_cnt reaches zero
// ... trigger_all_for(program)").
func (s *Supervisor) reconcileAll() {
	s.programs.Range(func(p *model.Program) bool {
		if !p.Dirty() {
			return true
		}

		removed := make(map[*model.Process]bool)
		for _, proc := range p.Processes() {
			if !proc.Dirty() {
				continue
			}
			if s.reconcileExit(p, proc) {
				removed[proc] = true
			}
		}
		if len(removed) == 0 {
			return true
		}

		p.RangeProcesses(func(proc *model.Process) model.ProcessAction {
			if removed[proc] {
				return model.ActionRemove
			}
			return model.ActionKeep
		})
		if p.ProcCount() == 0 {
			p.Pgid = 0
			for _, e := range s.timers.TriggerAllFor(p.Def.Name) {
				s.fireTimer(e)
			}
		}
		return true
	})
}

// dispatchEvents runs and clears every program's latched pending_event, in
// program-list order (§4.4 step 3, §5 ordering guarantee 2). Programs are
// snapshotted first so a delete event's list removal never perturbs the
// in-progress iteration.
func (s *Supervisor) dispatchEvents() {
	var snapshot []*model.Program
	s.programs.Range(func(p *model.Program) bool {
		snapshot = append(snapshot, p)
		return true
	})

	for _, p := range snapshot {
		switch p.PendingEvent {
		case model.EventNone:
		case model.EventRestart:
			// Stays latched while children are still dying (signalStop's
			// SIGTERM hasn't reaped yet); only a later pass, once proc_cnt
			// reaches zero, actually relaunches and clears the latch.
			if p.ProcCount() > 0 {
				continue
			}
			s.launchProgram(p)
		case model.EventAdd:
			if p.ProcCount() == 0 && p.Def.AutoStart {
				s.launchProgram(p)
			}
		case model.EventDelete:
			s.signalStop(p)
			s.waitAllSync(p)
			p.Close()
			s.programs.Remove(p.Def.Name)
		}
		p.PendingEvent = model.EventNone
	}
}

// waitAllSync blocks until every live child of p has been observed and
// reconciled (§4.5 "exit: signal_stop every program, synchronously wait,
// then set the exit latch", and §4.4 step 3's delete handler). Exit reports
// belonging to other programs are buffered for the next DispatchPass rather
// than dropped. Timer deadlines that fall due while waiting are fired, so a
// stop deadline still escalates to SIGKILL and bounds the wait.
func (s *Supervisor) waitAllSync(p *model.Program) {
	for p.ProcCount() > 0 {
		var r exitReport
		select {
		case r = <-s.exitCh:
		case <-s.timers.Channel():
			if e, ok := s.timers.Pop(); ok {
				s.fireTimer(e)
			}
			continue
		}
		owner, proc, ok := s.findByPid(r.pid)
		if !ok || owner != p {
			s.pending = append(s.pending, r)
			continue
		}
		proc.MarkDirty(r.state)
		if s.reconcileExit(p, proc) {
			p.RangeProcesses(func(pr *model.Process) model.ProcessAction {
				if pr == proc {
					return model.ActionRemove
				}
				return model.ActionKeep
			})
		}
	}
	p.Pgid = 0
	for _, e := range s.timers.TriggerAllFor(p.Def.Name) {
		s.fireTimer(e)
	}
}

// Run is the main event loop (§4.4's `while not exit_latch` loop, rendered
// per §4.4.1): it selects over completed operator lines, child-exit reports,
// the timer queue's single alarm, and SIGHUP, running a DispatchPass after
// each. handle is called synchronously for every line before the pass runs,
// matching §5 ordering guarantee 1 ("commands ... complete before the next
// line is read").
func (s *Supervisor) Run(lines <-chan string, hup <-chan os.Signal, handle func(line string)) {
	for !s.exitLatch {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			handle(line)
			s.DispatchPass()

		case r := <-s.exitCh:
			s.pending = append(s.pending, r)
			s.DispatchPass()

		case <-s.timers.Channel():
			if e, ok := s.timers.Pop(); ok {
				s.fireTimer(e)
			}
			s.DispatchPass()

		case <-hup:
			if err := s.Reload(s.configPath); err != nil {
				s.logger.Errorf("reload: %v", err)
			}
			s.DispatchPass()
		}
	}
}
