package supervisor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/kornnellio/taskmaster/internal/model"
)

// This file exercises supervisor internals directly (white-box) because the
// invariants under test (§8: proc_cnt, pgid, dirty flags) are not observable
// through the public Start/Stop/Status surface alone.

func testLogger(t *testing.T) *logrus.Logger {
	t.Helper()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	return log
}

func devNullDef(name string, cmd []string) model.Definition {
	return model.Definition{
		Name:        name,
		Cmd:         cmd,
		StdOut:      "/dev/null",
		StdErr:      "/dev/null",
		ExitCodes:   []int{0},
		NumProcs:    1,
		AutoRestart: model.AutoRestartUnexpected,
		StopSignal:  unix.SIGTERM,
		StartTime:   50 * time.Millisecond,
		StopTime:    2 * time.Second,
		AutoStart:   false,
	}
}

func waitUntil(t *testing.T, timeout time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestCleanExitRemovesProcessNoRestart(t *testing.T) {
	def := devNullDef("sleeper", []string{"/bin/sh", "-c", "exit 0"})
	sup, err := New([]model.Definition{def}, testLogger(t), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sup.Start("sleeper")
	p, _ := sup.programs.Get("sleeper")
	if p.ProcCount() != 1 {
		t.Fatalf("expected 1 live process right after start, got %d", p.ProcCount())
	}

	waitUntil(t, 2*time.Second, func() bool {
		sup.DispatchPass()
		return p.ProcCount() == 0
	})
	if p.Pgid != 0 {
		t.Fatalf("pgid should reset to 0 once proc_cnt reaches 0, got %d", p.Pgid)
	}
}

func TestUnexpectedCrashRetriesThenRemoves(t *testing.T) {
	def := devNullDef("crasher", []string{"/bin/false"})
	def.StartRetries = 2
	sup, err := New([]model.Definition{def}, testLogger(t), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sup.Start("crasher")
	p, _ := sup.programs.Get("crasher")

	waitUntil(t, 3*time.Second, func() bool {
		sup.DispatchPass()
		return p.ProcCount() == 0
	})

	// restart_cnt starts at 1 and increments on every respawn; with
	// startretries=2 the process survives two restarts (cnt 2, 3) and is
	// removed on its third exit, when cnt 3 > startretries 2.
	// We only assert the terminal state here: the record is gone and pgid reset.
	if p.Pgid != 0 {
		t.Fatalf("pgid should reset to 0 after the retried process is finally removed")
	}
}

func TestStartIsIdempotentWhenFull(t *testing.T) {
	def := devNullDef("idle", []string{"/bin/sh", "-c", "sleep 5"})
	sup, err := New([]model.Definition{def}, testLogger(t), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sup.Start("idle")
	p, _ := sup.programs.Get("idle")
	waitUntil(t, time.Second, func() bool { return p.ProcCount() == 1 })

	pidBefore := p.Processes()[0].Pid
	sup.Start("idle") // should be a no-op: already at numprocs
	if len(p.Processes()) != 1 || p.Processes()[0].Pid != pidBefore {
		t.Fatalf("second Start() on a full program must not spawn")
	}

	sup.Stop("idle")
	sup.waitAllSync(p)
}

func TestStopOnIdleProgramIsNoOp(t *testing.T) {
	def := devNullDef("never-started", []string{"/bin/true"})
	sup, err := New([]model.Definition{def}, testLogger(t), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sup.Stop("never-started") {
		t.Fatalf("Stop() on a program with no live children must report no-op (false)")
	}
}

func TestReloadSoftChangeAppliesInPlaceWithoutRestart(t *testing.T) {
	def := devNullDef("web", []string{"/bin/sh", "-c", "sleep 5"})
	sup, err := New([]model.Definition{def}, testLogger(t), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sup.Start("web")
	p, _ := sup.programs.Get("web")
	waitUntil(t, time.Second, func() bool { return p.ProcCount() == 1 })
	pidBefore := p.Processes()[0].Pid

	changed := def
	changed.StartTime = 999 * time.Millisecond // soft field only
	sup.reconcile([]model.Definition{changed})
	sup.DispatchPass()

	if p.PendingEvent != model.EventNone {
		t.Fatalf("soft reload must not latch an event, got %v", p.PendingEvent)
	}
	if len(p.Processes()) != 1 || p.Processes()[0].Pid != pidBefore {
		t.Fatalf("soft reload must not disturb the running process")
	}
	if p.Def.StartTime != 999*time.Millisecond {
		t.Fatalf("soft field should have been applied in place")
	}

	sup.Stop("web")
	sup.waitAllSync(p)
}

func TestReloadHardChangeRestartsProgram(t *testing.T) {
	def := devNullDef("app", []string{"/bin/sh", "-c", "sleep 5"})
	def.AutoStart = true
	sup, err := New([]model.Definition{def}, testLogger(t), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, _ := sup.programs.Get("app")
	waitUntil(t, time.Second, func() bool { return p.ProcCount() == 1 })

	changed := def
	changed.Cmd = []string{"/bin/sh", "-c", "sleep 6"} // hard field
	sup.reconcile([]model.Definition{changed})

	if p.PendingEvent != model.EventDelete {
		t.Fatalf("old program should be latched for delete, got %v", p.PendingEvent)
	}

	var newP *model.Program
	sup.programs.Range(func(cur *model.Program) bool {
		if cur.Def.Name == "app" && cur != p {
			newP = cur
			return false
		}
		return true
	})
	if newP == nil {
		t.Fatalf("reconcile should have inserted a fresh program record sharing the name")
	}
	if newP.PendingEvent != model.EventAdd {
		t.Fatalf("new program should be latched for add, got %v", newP.PendingEvent)
	}

	waitUntil(t, 2*time.Second, func() bool {
		sup.DispatchPass()
		return newP.ProcCount() == 1
	})

	sup.Stop("app")
	sup.waitAllSync(newP)
}

func TestRestartRelaunchesOnceIdleAndNeverExceedsNumProcs(t *testing.T) {
	def := devNullDef("svc", []string{"/bin/sh", "-c", "sleep 5"})
	def.AutoStart = true
	def.NumProcs = 2
	sup, err := New([]model.Definition{def}, testLogger(t), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, _ := sup.programs.Get("svc")
	waitUntil(t, time.Second, func() bool { return p.ProcCount() == 2 })
	pidsBefore := []int{p.Processes()[0].Pid, p.Processes()[1].Pid}

	sup.Restart("svc")
	if p.PendingEvent != model.EventRestart {
		t.Fatalf("restart should latch EventRestart, got %v", p.PendingEvent)
	}

	// While the old children are still dying, DispatchPass must not launch
	// new ones yet and must keep the restart latched.
	sup.DispatchPass()
	if p.PendingEvent != model.EventRestart {
		t.Fatalf("EventRestart must stay latched while proc_cnt > 0, got %v", p.PendingEvent)
	}
	if p.ProcCount() > def.NumProcs {
		t.Fatalf("proc_cnt must never exceed numprocs, got %d", p.ProcCount())
	}

	waitUntil(t, 2*time.Second, func() bool {
		sup.DispatchPass()
		if p.ProcCount() != def.NumProcs {
			return false
		}
		for _, proc := range p.Processes() {
			if proc.Pid == pidsBefore[0] || proc.Pid == pidsBefore[1] {
				return false // old children not yet reaped
			}
		}
		return true
	})
	if p.PendingEvent != model.EventNone {
		t.Fatalf("restart latch should clear once relaunched, got %v", p.PendingEvent)
	}
	for _, proc := range p.Processes() {
		for _, old := range pidsBefore {
			if proc.Pid == old {
				t.Fatalf("relaunch should spawn fresh pids, found stale pid %d", old)
			}
		}
	}
	if p.ProcCount() > def.NumProcs {
		t.Fatalf("proc_cnt must never exceed numprocs after relaunch, got %d", p.ProcCount())
	}

	sup.Stop("svc")
	sup.waitAllSync(p)
}

func TestStatusLineShapeAndDetail(t *testing.T) {
	def := devNullDef("api", []string{"/bin/sh", "-c", "sleep 5"})
	sup, err := New([]model.Definition{def}, testLogger(t), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sup.Start("api")
	p, _ := sup.programs.Get("api")
	waitUntil(t, time.Second, func() bool { return p.ProcCount() == 1 })

	summary := sup.Status(nil)
	if !strings.Contains(summary, "1/1 started") {
		t.Fatalf("status summary = %q, want it to contain 1/1 started", summary)
	}

	detail := sup.Status([]string{"api"})
	if !strings.Contains(detail, "pid ") || !strings.Contains(detail, "starting") {
		t.Fatalf("detailed status = %q, want per-process pid/state lines", detail)
	}

	sup.Stop("api")
	sup.waitAllSync(p)
}

func TestOpenLogsFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	def := devNullDef("bad", []string{"/bin/true"})
	def.StdOut = filepath.Join(dir, "no", "such", "dir", "out.log")
	if _, err := New([]model.Definition{def}, testLogger(t), ""); err == nil {
		t.Fatalf("expected New() to fail when std_out's directory does not exist")
	}
}
