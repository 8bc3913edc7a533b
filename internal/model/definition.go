package model

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// AutoRestart is the per-program restart policy (SPEC_FULL.md §3:
// autorestart ∈ {never, always, unexpected}).
type AutoRestart int

const (
	AutoRestartNever AutoRestart = iota
	AutoRestartAlways
	AutoRestartUnexpected
)

func (a AutoRestart) String() string {
	switch a {
	case AutoRestartNever:
		return "never"
	case AutoRestartAlways:
		return "always"
	case AutoRestartUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// ParseAutoRestart validates the loader-supplied policy string (§6: the
// loader "must enforce ... autorestart ∈ {never, always, unexpected}").
func ParseAutoRestart(s string) (AutoRestart, error) {
	switch s {
	case "never", "":
		return AutoRestartNever, nil
	case "always":
		return AutoRestartAlways, nil
	case "unexpected":
		return AutoRestartUnexpected, nil
	default:
		return 0, fmt.Errorf("unknown autorestart policy %q", s)
	}
}

// Definition is the operator-declared, immutable-until-reload program
// definition (SPEC_FULL.md §3 "Program definition").
type Definition struct {
	Name         string
	Cmd          []string
	Env          []string
	StdOut       string
	StdErr       string
	WorkingDir   string
	ExitCodes    []int
	NumProcs     int
	Umask        uint32
	AutoRestart  AutoRestart
	StartRetries int
	AutoStart    bool
	StopSignal   unix.Signal
	StartTime    time.Duration
	StopTime     time.Duration
}

// ExpectedExitCode reports whether code is a member of the program's
// exitcodes set (§3 "exitcodes (set of expected exit codes, default {0})").
func (d Definition) ExpectedExitCode(code int) bool {
	for _, c := range d.ExitCodes {
		if c == code {
			return true
		}
	}
	return false
}

func sameIntSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

func sameStringSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ChangeClass is the reload reconciler's (C6) classification of a config
// change between a running Definition and its freshly-loaded counterpart
// (SPEC_FULL.md §4.6 step 3).
type ChangeClass int

const (
	ChangeNone ChangeClass = iota
	ChangeSoft
	ChangeHard
)

// Classify implements §4.6 step 3 verbatim: hard dominates soft, exitcodes
// set-size differing is hard while same-size-different-members is soft.
func (d Definition) Classify(other Definition) ChangeClass {
	hard := !sameStringSlice(d.Cmd, other.Cmd) ||
		d.NumProcs != other.NumProcs ||
		!sameStringSlice(d.Env, other.Env) ||
		d.StdOut != other.StdOut ||
		d.StdErr != other.StdErr ||
		d.WorkingDir != other.WorkingDir ||
		d.Umask != other.Umask ||
		len(d.ExitCodes) != len(other.ExitCodes)
	if hard {
		return ChangeHard
	}

	soft := d.AutoStart != other.AutoStart ||
		d.AutoRestart != other.AutoRestart ||
		d.StartTime != other.StartTime ||
		d.StartRetries != other.StartRetries ||
		d.StopSignal != other.StopSignal ||
		d.StopTime != other.StopTime ||
		!sameIntSet(d.ExitCodes, other.ExitCodes)
	if soft {
		return ChangeSoft
	}
	return ChangeNone
}

// ApplySoft copies the soft-reloadable fields from other onto d, as required
// by §4.6 step 4 ("Soft: copy the soft fields from p' into p in place").
func (d *Definition) ApplySoft(other Definition) {
	d.AutoStart = other.AutoStart
	d.AutoRestart = other.AutoRestart
	d.StartTime = other.StartTime
	d.StartRetries = other.StartRetries
	d.StopSignal = other.StopSignal
	d.StopTime = other.StopTime
	d.ExitCodes = other.ExitCodes
}
