package supervisor

import (
	"github.com/kornnellio/taskmaster/internal/config"
	"github.com/kornnellio/taskmaster/internal/model"
)

// Reload re-reads path and reconciles the running program list against it
// (§4.6). On any loader failure the running state is left untouched and the
// error is returned to the caller (§7 "Reload failure: ... current state
// preserved unchanged; command returns failure").
func (s *Supervisor) Reload(path string) error {
	defs, err := config.Load(path)
	if err != nil {
		return err
	}
	s.reconcile(defs)
	return nil
}

// reconcile implements §4.6's name-keyed diff verbatim, step by step.
//
// Step 2's "move p' from L' to the front of L" is applied once per added
// definition in declaration order; because each insertion targets the very
// front of the list, programs added in the same reload end up at the front
// in reverse declaration order. The source leaves the resulting order
// unspecified beyond "front of L", so this is a deliberate, literal reading
// rather than a re-interpretation.
func (s *Supervisor) reconcile(defs []model.Definition) {
	newByName := make(map[string]model.Definition, len(defs))
	for _, d := range defs {
		newByName[d.Name] = d
	}

	// Step 1: programs with no counterpart in the new list are latched for
	// deletion.
	oldNames := make(map[string]bool)
	s.programs.Range(func(p *model.Program) bool {
		oldNames[p.Def.Name] = true
		if _, ok := newByName[p.Def.Name]; !ok {
			p.PendingEvent = model.EventDelete
		}
		return true
	})

	// Step 2: brand new definitions are latched for addition and moved to
	// the front of L.
	for _, def := range defs {
		if oldNames[def.Name] {
			continue
		}
		p := model.NewProgram(def)
		p.PendingEvent = model.EventAdd
		if err := s.openLogs(p); err != nil {
			s.logger.Errorf("reload: program %q: %v", def.Name, err)
			continue
		}
		s.programs.Prepend(p)
	}

	// Steps 3-5: classify and act on every name shared by both lists.
	s.programs.Range(func(p *model.Program) bool {
		if p.PendingEvent != model.EventNone {
			return true // already latched by step 1 or freshly added by step 2
		}
		def, ok := newByName[p.Def.Name]
		if !ok {
			return true
		}

		switch p.Def.Classify(def) {
		case model.ChangeSoft:
			p.Def.ApplySoft(def)
		case model.ChangeHard:
			p.PendingEvent = model.EventDelete
			newP := model.NewProgram(def)
			newP.PendingEvent = model.EventAdd
			if err := s.openLogs(newP); err != nil {
				s.logger.Errorf("reload: program %q: %v", def.Name, err)
				return true
			}
			s.programs.InsertAfter(p.Def.Name, newP)
		}
		return true
	})

	// Step 6: the completion vocabulary is always derived live from
	// s.programs.Names(), so there is nothing further to replace here.
}
