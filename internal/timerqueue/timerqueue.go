// Package timerqueue implements the Timer Queue (component C2):
// SPEC_FULL.md §4.2's single ordered list of per-program start/stop
// deadlines driving one "kernel alarm".
//
// There is no portable, goroutine-safe equivalent of setitimer/SIGALRM in Go
// that can be mixed with the scheduler without risking a handler running on
// an arbitrary goroutine, and the teacher never used one either — its whole
// architecture is a single select loop fed by channels. This package renders
// the "single armed kernel alarm" invariant (§8: "the kernel alarm equals
// head(T).deadline - now, or is disarmed iff T is empty") as one *time.Timer
// that Queue reprograms every time its head entry changes. Because Queue's
// methods are only ever meant to be called from one goroutine (the
// dispatcher — see internal/supervisor), the §5 "mask SIGALRM around
// mutation" rule collapses to ordinary sequential code; see SPEC_FULL.md
// §4.2.1 and §5.1.
package timerqueue

import "time"

// Kind distinguishes a start-deadline timer from a stop-deadline timer
// (§3 "Timer record": type ∈ {start, stop}).
type Kind int

const (
	KindStart Kind = iota
	KindStop
)

func (k Kind) String() string {
	if k == KindStart {
		return "start"
	}
	return "stop"
}

// Entry is one armed deadline. Program is a stable name, never an owning
// reference to a *model.Program (Design Notes §9: "timers refer to programs
// by stable identifier... never by owning reference").
type Entry struct {
	Program  string
	Kind     Kind
	Deadline time.Time
}

// Queue is the deadline-sorted timer list plus the single kernel alarm
// surrogate (§3 "Timer record" list + §4.2 "a single kernel alarm").
type Queue struct {
	entries []Entry
	timer   *time.Timer
}

// New returns an empty, disarmed Queue.
func New() *Queue {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &Queue{timer: t}
}

// Channel returns the channel the dispatcher selects on; it fires exactly
// when the current head entry's deadline elapses, and never otherwise.
func (q *Queue) Channel() <-chan time.Time { return q.timer.C }

// Len reports how many deadlines are currently armed.
func (q *Queue) Len() int { return len(q.entries) }

// Peek returns the head entry without removing it.
func (q *Queue) Peek() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// Entries returns a copy of the current deadline-ascending list, for tests
// and introspection.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Arm inserts a new deadline `delay` from now for `program` (§4.2 "arm:
// compute deadline = now + .../1000, insert into the sorted list").
//
// If the deadline has already passed (delay <= 0), the entry is never
// inserted and due is true: the caller must run the timer's handler
// synchronously and not touch the queue further for this entry (§4.2 "If at
// arm time the deadline is already past, the handler fires synchronously and
// the entry is discarded without touching the kernel timer").
func (q *Queue) Arm(program string, kind Kind, delay time.Duration) (entry Entry, due bool) {
	now := time.Now()
	deadline := now.Add(delay)
	entry = Entry{Program: program, Kind: kind, Deadline: deadline}
	if !deadline.After(now) {
		return entry, true
	}

	idx := len(q.entries)
	for i, existing := range q.entries {
		if existing.Deadline.After(deadline) {
			idx = i
			break
		}
	}
	q.entries = append(q.entries, Entry{})
	copy(q.entries[idx+1:], q.entries[idx:])
	q.entries[idx] = entry

	q.reprogram()
	return entry, false
}

// Pop removes and returns the head entry, called by the dispatcher once
// Channel() has fired (§4.2 "take the head, invoke its handler inline,
// unlink, and re-program the kernel alarm to the new head").
func (q *Queue) Pop() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	q.reprogram()
	return e, true
}

// TriggerAllFor drains every timer entry referring to program, in ascending
// deadline order, removing each from the queue (§4.2 "trigger_all_for:
// drain every timer referring to program, in order"). The caller is
// responsible for running each entry's handler; TriggerAllFor only performs
// the bookkeeping.
func (q *Queue) TriggerAllFor(program string) []Entry {
	var drained []Entry
	remaining := q.entries[:0]
	for _, e := range q.entries {
		if e.Program == program {
			drained = append(drained, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	q.entries = remaining
	if len(drained) > 0 {
		q.reprogram()
	}
	return drained
}

// reprogram re-arms the single kernel-alarm surrogate to the current head,
// or disarms it if the queue is empty. Always correct to call after any
// mutation, regardless of whether the head actually changed.
func (q *Queue) reprogram() {
	if !q.timer.Stop() {
		select {
		case <-q.timer.C:
		default:
		}
	}
	if len(q.entries) == 0 {
		return
	}
	d := time.Until(q.entries[0].Deadline)
	if d < 0 {
		d = 0
	}
	q.timer.Reset(d)
}
