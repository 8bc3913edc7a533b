package model

// ProgramList is the ordered sequence of programs described in §3 ("Global
// supervisor state: ordered sequence of programs") with name-uniqueness
// enforced (§3 invariant 6). Grounded on the teacher's
// map[string]*Process — generalized to preserve insertion order (needed by
// §4.6 step 5: "insert p' in L immediately after p") and to own *Program
// instead of *Process.
type ProgramList struct {
	items []*Program
}

// NewProgramList returns an empty program list.
func NewProgramList() *ProgramList {
	return &ProgramList{}
}

// Len returns the number of programs currently in the list.
func (l *ProgramList) Len() int { return len(l.items) }

// Get looks up a program by name.
func (l *ProgramList) Get(name string) (*Program, bool) {
	for _, p := range l.items {
		if p.Def.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Append adds a program to the end of the list (C1 "append ... in the
// program list").
func (l *ProgramList) Append(p *Program) {
	l.items = append(l.items, p)
}

// InsertAfter inserts p immediately after the program named afterName,
// implementing §4.6 step 5 ("insert p' in L immediately after p"). If
// afterName is not found, p is appended.
func (l *ProgramList) InsertAfter(afterName string, p *Program) {
	for i, cur := range l.items {
		if cur.Def.Name == afterName {
			l.items = append(l.items[:i+1], append([]*Program{p}, l.items[i+1:]...)...)
			return
		}
	}
	l.items = append(l.items, p)
}

// Prepend inserts p at the front of the list, implementing §4.6 step 2
// ("move p' from L' to the front of L").
func (l *ProgramList) Prepend(p *Program) {
	l.items = append([]*Program{p}, l.items...)
}

// Remove deletes the named program from the list (C1 "remove ... in the
// program list"). It is a no-op if the name is absent.
func (l *ProgramList) Remove(name string) {
	for i, cur := range l.items {
		if cur.Def.Name == name {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// Range visits every program in order. The callback returns false to stop
// early.
func (l *ProgramList) Range(fn func(*Program) bool) {
	for _, p := range l.items {
		if !fn(p) {
			return
		}
	}
}

// Names returns the current program names in list order, skipping programs
// latched for deletion (§3 invariant 4: "a program with pending_event=delete
// appears in no completion list exposed to the operator").
func (l *ProgramList) Names() []string {
	names := make([]string, 0, len(l.items))
	for _, p := range l.items {
		if p.PendingEvent == EventDelete {
			continue
		}
		names = append(names, p.Def.Name)
	}
	return names
}

// HasUniqueNames reports whether every program in the list has a distinct
// name (§3 invariant 6), used by tests and defensive checks.
func (l *ProgramList) HasUniqueNames() bool {
	seen := make(map[string]struct{}, len(l.items))
	for _, p := range l.items {
		if _, ok := seen[p.Def.Name]; ok {
			return false
		}
		seen[p.Def.Name] = struct{}{}
	}
	return true
}
