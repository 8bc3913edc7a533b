// Package command implements the Command Surface (component C5): parsing
// one operator line into a typed, arity-validated Command (SPEC_FULL.md
// §4.5), with the five non-fatal parse-error kinds original_source's
// run_client.c distinguishes.
//
// Grounded on original_source/src/run_client.c's error vocabulary (empty
// line, command not found, too many arguments, argument missing, bad
// argument) — there is no teacher precedent for a command shell (the teacher
// has none), so this package follows the distilled source directly,
// rendered as a Go parser returning a typed *ParseError instead of the
// source's printed-then-discarded error strings.
package command

import (
	"fmt"
	"strings"
)

// Verb identifies one of the seven recognized commands.
type Verb int

const (
	VerbStatus Verb = iota
	VerbStart
	VerbStop
	VerbRestart
	VerbReload
	VerbExit
	VerbHelp
)

func (v Verb) String() string {
	switch v {
	case VerbStatus:
		return "status"
	case VerbStart:
		return "start"
	case VerbStop:
		return "stop"
	case VerbRestart:
		return "restart"
	case VerbReload:
		return "reload"
	case VerbExit:
		return "exit"
	case VerbHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Command is one parsed, arity-validated operator line.
type Command struct {
	Verb Verb
	Args []string
}

// ErrKind is one of the five non-fatal parse-error kinds (§4.5).
type ErrKind int

const (
	ErrEmptyLine ErrKind = iota
	ErrCommandNotFound
	ErrTooManyArguments
	ErrArgumentMissing
	ErrBadArgument
)

// ParseError is returned by Parse; it never represents a fatal condition —
// the caller reports it to the operator and takes no further action (§4.5
// "all non-fatal, reported to the operator, no state change").
type ParseError struct {
	Kind   ErrKind
	Detail string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrEmptyLine:
		return "empty line"
	case ErrCommandNotFound:
		return fmt.Sprintf("command not found: %s", e.Detail)
	case ErrTooManyArguments:
		return fmt.Sprintf("too many arguments: %s", e.Detail)
	case ErrArgumentMissing:
		return fmt.Sprintf("argument missing: %s", e.Detail)
	case ErrBadArgument:
		return fmt.Sprintf("bad argument: %s", e.Detail)
	default:
		return "parse error"
	}
}

var zeroArgVerbs = map[string]Verb{
	"reload": VerbReload,
	"exit":   VerbExit,
	"help":   VerbHelp,
}

var nameArgVerbs = map[string]Verb{
	"start":   VerbStart,
	"stop":    VerbStop,
	"restart": VerbRestart,
}

// Parse splits line on whitespace and validates it against the fixed §4.5
// verb table. known is consulted for every program-name argument (`status`,
// `start`, `stop`, `restart`) — it must report whether name is a currently
// recognized program (§4.5 "Name tokens are matched against the full program
// list at parse time").
func Parse(line string, known func(name string) bool) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, &ParseError{Kind: ErrEmptyLine}
	}

	verb, args := fields[0], fields[1:]

	if verb == "status" {
		if err := checkNames(args, known); err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbStatus, Args: args}, nil
	}

	if v, ok := nameArgVerbs[verb]; ok {
		if len(args) == 0 {
			return Command{}, &ParseError{Kind: ErrArgumentMissing, Detail: verb + " requires at least one program name"}
		}
		if err := checkNames(args, known); err != nil {
			return Command{}, err
		}
		return Command{Verb: v, Args: args}, nil
	}

	if v, ok := zeroArgVerbs[verb]; ok {
		if len(args) != 0 {
			return Command{}, &ParseError{Kind: ErrTooManyArguments, Detail: verb + " takes no arguments"}
		}
		return Command{Verb: v}, nil
	}

	return Command{}, &ParseError{Kind: ErrCommandNotFound, Detail: verb}
}

// checkNames rejects duplicate names within one command (§4.5 "duplicate
// names in one command are rejected as too-many-arguments") and any name not
// known to the supervisor (§4.5 "bad-argument (unknown program name)").
func checkNames(args []string, known func(string) bool) error {
	seen := make(map[string]bool, len(args))
	for _, a := range args {
		if seen[a] {
			return &ParseError{Kind: ErrTooManyArguments, Detail: "duplicate program name " + a}
		}
		seen[a] = true
		if !known(a) {
			return &ParseError{Kind: ErrBadArgument, Detail: a}
		}
	}
	return nil
}

// HelpText is the usage text printed by the `help` verb (§4.5).
const HelpText = `Commands:
  status [name ...]   show program status, or detail for the named programs
  start name ...      start the named programs
  stop name ...       stop the named programs
  restart name ...    restart the named programs
  reload              reload the configuration file
  exit                stop everything and quit
  help                show this text
`
