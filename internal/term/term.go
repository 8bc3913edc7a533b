// Package term implements Signal & Terminal Discipline (component C7,
// SPEC_FULL.md §4.7): foreground process-group acquisition at startup and
// the interactive-signal-ignore policy, rendered via
// `golang.org/x/sys/unix` ioctls rather than the raw `syscall` package, per
// §4.7.1.
//
// Grounded on original_source/src/main.c's init_shell (the tcgetpgrp/SIGTTIN
// loop, setpgid, tcsetpgrp, ignore-interactive-signals sequence) — the
// teacher has no terminal discipline of its own, so this package follows the
// distilled C source directly.
package term

import (
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// interactiveSignals is the set ignored by the supervisor itself (§4.7).
// `execve` keeps SIG_IGN dispositions, and no child-side reset is done, so
// children spawned after IgnoreInteractiveSignals start with these signals
// ignored too (see SPEC_FULL.md §4.7.1).
var interactiveSignals = []os.Signal{
	unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU,
}

// IgnoreInteractiveSignals ignores SIGINT, SIGQUIT, SIGTSTP, SIGTTIN, and
// SIGTTOU in the supervisor process (§4.7).
func IgnoreInteractiveSignals() {
	signal.Ignore(interactiveSignals...)
}

// IsInteractive reports whether fd refers to a controlling terminal, via
// the TCGETS ioctl succeeding (§4.7.1's isatty rendering).
func IsInteractive(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil
}

// AcquireForeground performs the startup foreground-acquisition sequence
// (§4.7): join its own process group, then loop delivering SIGTTIN to that
// group until tcgetpgrp(fd) reports the supervisor's own pgid, then claim
// the terminal with tcsetpgrp. Returns the acquired pgid.
//
// If fd is not a controlling terminal this fails fast (§1 Non-goals: "no
// non-interactive or daemon mode"; §4.7: "If stdin is not a tty, the
// supervisor fails fast").
func AcquireForeground(fd int) (int, error) {
	if !IsInteractive(fd) {
		return 0, fmt.Errorf("term: fd %d is not a controlling terminal", fd)
	}

	if err := unix.Setpgid(0, 0); err != nil {
		return 0, fmt.Errorf("term: setpgid: %w", err)
	}
	pgid, err := unix.Getpgid(0)
	if err != nil {
		return 0, fmt.Errorf("term: getpgid: %w", err)
	}

	for {
		fg, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
		if err != nil {
			return 0, fmt.Errorf("term: tcgetpgrp: %w", err)
		}
		if fg == pgid {
			break
		}
		if err := unix.Kill(0, unix.SIGTTIN); err != nil {
			return 0, fmt.Errorf("term: raise SIGTTIN: %w", err)
		}
	}

	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid); err != nil {
		return 0, fmt.Errorf("term: tcsetpgrp: %w", err)
	}
	return pgid, nil
}
