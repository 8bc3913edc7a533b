package supervisor

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kornnellio/taskmaster/internal/model"
	"github.com/kornnellio/taskmaster/internal/timerqueue"
)

// spawnOne starts one fresh process slot for p (§4.3 "Spawn"), joining the
// program's existing pgid or, if p has no live children yet, letting the
// kernel assign pgid = child pid.
func (s *Supervisor) spawnOne(p *model.Program) (*model.Process, error) {
	cmd := spawnCmd(p)
	if err := startCmd(cmd, p.Def.Umask); err != nil {
		return nil, err
	}

	if p.Pgid == 0 {
		p.Pgid = cmd.Process.Pid
	}

	proc := &model.Process{
		Pid:        cmd.Process.Pid,
		RestartCnt: 1,
		State:      model.ProcStarting,
		StartedAt:  time.Now(),
	}
	proc.SetCmd(cmd)
	p.AddProcess(proc)
	s.watchExit(cmd)

	s.logger.Infof("(%d) %s %d started", p.Pgid, p.Def.Name, proc.Pid)
	return proc, nil
}

// launchProgram spawns numprocs - proc_cnt children in order, then arms the
// start-deadline timer (§4.3 "launch_program"). If the deadline has already
// elapsed by the time it's armed (starttime_ms == 0), the start-deadline
// handler runs synchronously, matching timerqueue.Arm's due contract.
func (s *Supervisor) launchProgram(p *model.Program) {
	need := p.Def.NumProcs - p.ProcCount()
	for i := 0; i < need; i++ {
		if _, err := s.spawnOne(p); err != nil {
			s.logger.Errorf("(%s) spawn failed: %v", p.Def.Name, err)
			break
		}
	}
	s.armTimer(p.Def.Name, timerqueue.KindStart, p.Def.StartTime)
}

// signalStop delivers stopsignal to the whole process group, transitions
// every live process to terminating, and arms the stop-deadline timer
// (§4.3 "signal_stop"). Returns false ("no-op") if the program already has no
// live children.
func (s *Supervisor) signalStop(p *model.Program) bool {
	if p.ProcCount() == 0 {
		return false
	}
	if err := unix.Kill(-p.Pgid, p.Def.StopSignal); err != nil {
		s.logger.Errorf("(%d) %s: kill group: %v", p.Pgid, p.Def.Name, err)
	}
	p.RangeProcesses(func(proc *model.Process) model.ProcessAction {
		proc.State = model.ProcTerminating
		return model.ActionKeep
	})
	s.armTimer(p.Def.Name, timerqueue.KindStop, p.Def.StopTime)
	return true
}

// armTimer arms a deadline and, if it has already passed, runs the
// corresponding handler synchronously instead of touching the timer queue
// (§4.2 "If at arm time the deadline is already past...").
func (s *Supervisor) armTimer(name string, kind timerqueue.Kind, delay time.Duration) {
	entry, due := s.timers.Arm(name, kind, delay)
	if due {
		s.fireTimer(entry)
	}
}

// fireTimer runs the handler for one expired timer entry (§4.2 "Handlers").
func (s *Supervisor) fireTimer(e timerqueue.Entry) {
	p, ok := s.programs.Get(e.Program)
	if !ok {
		s.logger.Warnf("timer fired for unknown program %q", e.Program)
		return
	}
	switch e.Kind {
	case timerqueue.KindStart:
		s.handleStartDeadline(p)
	case timerqueue.KindStop:
		s.handleStopDeadline(p)
	}
}

func (s *Supervisor) handleStartDeadline(p *model.Program) {
	elapsed := p.Def.StartTime
	if p.ProcCount() >= p.Def.NumProcs {
		s.logger.Infof("(%d) %s successfully started. %g seconds elapsed. %d/%d procs",
			p.Pgid, p.Def.Name, elapsed.Seconds(), p.ProcCount(), p.Def.NumProcs)
	} else {
		s.logger.Warnf("(%d) %s failed to start successfully. %v elapsed. %d/%d procs",
			p.Pgid, p.Def.Name, elapsed, p.ProcCount(), p.Def.NumProcs)
	}
	p.RangeProcesses(func(proc *model.Process) model.ProcessAction {
		if proc.State == model.ProcStarting {
			proc.State = model.ProcRunning
		}
		return model.ActionKeep
	})
}

func (s *Supervisor) handleStopDeadline(p *model.Program) {
	if p.ProcCount() == 0 {
		s.logger.Infof("(%d) %s correctly terminated after %v", p.Pgid, p.Def.Name, p.Def.StopTime)
		return
	}
	s.logger.Warnf("(%d) %s didn't terminated correctly after %v", p.Pgid, p.Def.Name, p.Def.StopTime)
	if err := unix.Kill(-p.Pgid, unix.SIGKILL); err != nil {
		s.logger.Errorf("(%d) %s: SIGKILL group: %v", p.Pgid, p.Def.Name, err)
	}
}

// respawnInPlace restarts proc in place, reusing its record per §4.3
// "Replacement re-uses the existing record, increments restart_cnt, resets
// state to running, joins the existing pgid." A group whose members have all
// been reaped no longer exists and cannot be joined, so in that case the
// replacement starts a fresh group and becomes its leader.
func (s *Supervisor) respawnInPlace(p *model.Program, proc *model.Process) bool {
	if p.Pgid != 0 && unix.Kill(-p.Pgid, 0) == unix.ESRCH {
		p.Pgid = 0
	}
	cmd := spawnCmd(p)
	if err := startCmd(cmd, p.Def.Umask); err != nil {
		s.logger.Errorf("(%d) %s: restart spawn failed: %v", p.Pgid, p.Def.Name, err)
		return true // caller should remove the record; respawn failed
	}
	if p.Pgid == 0 {
		p.Pgid = cmd.Process.Pid
	}
	proc.Pid = cmd.Process.Pid
	proc.RestartCnt++
	proc.State = model.ProcRunning
	proc.StartedAt = time.Now()
	proc.SetCmd(cmd)
	s.watchExit(cmd)
	s.logger.Infof("(%d) %s %d restarted", p.Pgid, p.Def.Name, proc.Pid)
	return false
}

// classifyExit renders one observed wait status as the log verb/argument
// pair required by §6's event messages, reporting separately whether the
// child was merely stopped (§4.3 "stopped(sig): logged only").
func classifyExit(ws syscall.WaitStatus) (stopped bool, logVerb string, logArg int) {
	switch {
	case ws.Exited():
		return false, "exited with status", ws.ExitStatus()
	case ws.Signaled():
		return false, "terminated with signal", int(ws.Signal())
	case ws.Stopped():
		return true, "stopped with signal", int(ws.StopSignal())
	default:
		return false, "exited with status", 0
	}
}

// reconcileExit applies the exit classification and restart decision for one
// dirty process (§4.3, §4.4 step 2). Returns true if the process record
// should be removed from its program's process list.
//
// A signal-terminated child is always removed, never restarted, regardless
// of autorestart: original_source's update_process (run_client.c) takes the
// restart decision only on WIFEXITED and unconditionally delete_procs on
// WIFSIGNALED. This matters beyond fidelity to the source: stop/restart/exit
// all kill the process group with the stop signal, so treating a signaled
// exit as restart-eligible would resurrect children that were deliberately
// being stopped.
func (s *Supervisor) reconcileExit(p *model.Program, proc *model.Process) bool {
	state := proc.ExitState()
	defer proc.ClearDirty()

	if state == nil {
		return true
	}
	ws, _ := state.Sys().(syscall.WaitStatus)

	stopped, verb, arg := classifyExit(ws)
	s.logger.Infof("(%d) %s %d %s %d", p.Pgid, p.Def.Name, proc.Pid, verb, arg)
	if stopped {
		return false // logged only; record is retained, no restart
	}
	if ws.Signaled() {
		return true
	}

	expected := p.Def.ExpectedExitCode(ws.ExitStatus())
	shouldRestart := (p.Def.AutoRestart == model.AutoRestartAlways ||
		(p.Def.AutoRestart == model.AutoRestartUnexpected && !expected)) &&
		proc.RestartCnt <= p.Def.StartRetries

	if !shouldRestart {
		return true
	}
	return s.respawnInPlace(p, proc)
}
