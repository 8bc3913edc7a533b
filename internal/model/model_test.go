package model_test

import (
	"testing"

	"github.com/kornnellio/taskmaster/internal/model"
)

func TestExpectedExitCode(t *testing.T) {
	def := model.Definition{ExitCodes: []int{0, 2}}
	if !def.ExpectedExitCode(0) || !def.ExpectedExitCode(2) {
		t.Fatalf("expected 0 and 2 to be expected exit codes")
	}
	if def.ExpectedExitCode(1) {
		t.Fatalf("1 should not be an expected exit code")
	}
}

func TestClassifySoftVsHard(t *testing.T) {
	base := model.Definition{
		Cmd:       []string{"/bin/a"},
		NumProcs:  1,
		ExitCodes: []int{0},
	}

	soft := base
	soft.AutoStart = true
	if got := base.Classify(soft); got != model.ChangeSoft {
		t.Fatalf("autostart-only diff should be soft, got %v", got)
	}

	hard := base
	hard.Cmd = []string{"/bin/b"}
	if got := base.Classify(hard); got != model.ChangeHard {
		t.Fatalf("cmd diff should be hard, got %v", got)
	}

	none := base
	if got := base.Classify(none); got != model.ChangeNone {
		t.Fatalf("identical definitions should classify as none, got %v", got)
	}

	hardSize := base
	hardSize.ExitCodes = []int{0, 1}
	if got := base.Classify(hardSize); got != model.ChangeHard {
		t.Fatalf("exitcodes set-size diff should be hard, got %v", got)
	}

	softMembers := base
	softMembers.ExitCodes = []int{2}
	if got := base.Classify(softMembers); got != model.ChangeSoft {
		t.Fatalf("exitcodes same-size-different-members diff should be soft, got %v", got)
	}
}

func TestProgramRangeProcessesRemove(t *testing.T) {
	p := model.NewProgram(model.Definition{Name: "demo", NumProcs: 3})
	for i := 0; i < 3; i++ {
		p.AddProcess(&model.Process{Pid: 100 + i})
	}

	p.RangeProcesses(func(proc *model.Process) model.ProcessAction {
		if proc.Pid == 101 {
			return model.ActionRemove
		}
		return model.ActionKeep
	})

	if p.ProcCount() != 2 {
		t.Fatalf("expected 2 remaining processes, got %d", p.ProcCount())
	}
	if _, ok := p.FindByPid(101); ok {
		t.Fatalf("pid 101 should have been removed")
	}
}

func TestProgramListInsertAfterAndRemove(t *testing.T) {
	l := model.NewProgramList()
	a := model.NewProgram(model.Definition{Name: "a"})
	b := model.NewProgram(model.Definition{Name: "b"})
	l.Append(a)
	l.Append(b)

	c := model.NewProgram(model.Definition{Name: "c"})
	l.InsertAfter("a", c)

	var order []string
	l.Range(func(p *model.Program) bool {
		order = append(order, p.Def.Name)
		return true
	})
	want := []string{"a", "c", "b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	l.Remove("c")
	if l.Len() != 2 {
		t.Fatalf("expected 2 programs after remove, got %d", l.Len())
	}
	if !l.HasUniqueNames() {
		t.Fatalf("names should remain unique")
	}
}

func TestProgramListNamesSkipsDeleted(t *testing.T) {
	l := model.NewProgramList()
	a := model.NewProgram(model.Definition{Name: "a"})
	b := model.NewProgram(model.Definition{Name: "b"})
	b.PendingEvent = model.EventDelete
	l.Append(a)
	l.Append(b)

	names := l.Names()
	if len(names) != 1 || names[0] != "a" {
		t.Fatalf("Names() = %v, want [a]", names)
	}
}
