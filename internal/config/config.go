// Package config is the out-of-scope Configuration Loader collaborator
// (SPEC_FULL.md §1, §6.1): it parses an operator-supplied YAML document into
// a validated list of model.Definition, enforcing the exact rules §6
// delegates to it (name uniqueness, non-empty cmd, numprocs >= 1, known
// stopsignal, autorestart enum, unknown fields rejected) and applying every
// default §6 lists. The core (internal/supervisor) never parses
// configuration itself — it only ever receives the already-validated
// []model.Definition this package returns.
//
// Grounded on bobbydeveaux-starbucks-mugs/internal/config/config.go's shape
// (tagged structs, LoadConfig reads+unmarshals+defaults+validates, typed
// errors) using the same gopkg.in/yaml.v3 dependency; the *fields* are
// entirely specific to SPEC_FULL.md §3/§6.1, not borrowed from that example.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"

	"github.com/kornnellio/taskmaster/internal/model"
)

// Document is the top-level YAML shape (§6.1).
type Document struct {
	Programs []ProgramSpec `yaml:"programs"`
}

// ProgramSpec mirrors §3's Program definition field-for-field.
type ProgramSpec struct {
	Name         string   `yaml:"name"`
	Cmd          []string `yaml:"cmd"`
	Env          []string `yaml:"env,omitempty"`
	StdOut       string   `yaml:"std_out,omitempty"`
	StdErr       string   `yaml:"std_err,omitempty"`
	WorkingDir   string   `yaml:"workingdir,omitempty"`
	ExitCodes    []int    `yaml:"exitcodes,omitempty"`
	NumProcs     int      `yaml:"numprocs,omitempty"`
	Umask        string   `yaml:"umask,omitempty"`
	AutoRestart  string   `yaml:"autorestart,omitempty"`
	StartRetries int      `yaml:"startretries,omitempty"`
	AutoStart    *bool    `yaml:"autostart,omitempty"`
	StopSignal   string   `yaml:"stopsignal,omitempty"`
	StartTimeMs  int      `yaml:"starttime_ms,omitempty"`
	StopTimeMs   int      `yaml:"stoptime_ms,omitempty"`
}

var signalNames = map[string]unix.Signal{
	"HUP":  unix.SIGHUP,
	"INT":  unix.SIGINT,
	"QUIT": unix.SIGQUIT,
	"TERM": unix.SIGTERM,
	"KILL": unix.SIGKILL,
	"USR1": unix.SIGUSR1,
	"USR2": unix.SIGUSR2,
}

// Load reads and validates the configuration source at path, returning the
// ordered list of program definitions the core consumes (§1 "Core consumes a
// validated program list").
func Load(path string) ([]model.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // §6: "Unknown fields are rejected by the loader"

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	defs := make([]model.Definition, 0, len(doc.Programs))
	seen := make(map[string]struct{}, len(doc.Programs))
	for i, spec := range doc.Programs {
		def, err := toDefinition(spec)
		if err != nil {
			return nil, fmt.Errorf("config: program[%d] %q: %w", i, spec.Name, err)
		}
		if _, dup := seen[def.Name]; dup {
			return nil, fmt.Errorf("config: duplicate program name %q", def.Name)
		}
		seen[def.Name] = struct{}{}
		defs = append(defs, def)
	}
	return defs, nil
}

func toDefinition(spec ProgramSpec) (model.Definition, error) {
	if spec.Name == "" {
		return model.Definition{}, fmt.Errorf("name must not be empty")
	}
	if len(spec.Cmd) == 0 {
		return model.Definition{}, fmt.Errorf("cmd must not be empty")
	}

	numProcs := spec.NumProcs
	if numProcs == 0 {
		numProcs = 1
	}
	if numProcs < 1 {
		return model.Definition{}, fmt.Errorf("numprocs must be >= 1, got %d", numProcs)
	}

	stdOut := spec.StdOut
	if stdOut == "" {
		stdOut = "/dev/null"
	}
	stdErr := spec.StdErr
	if stdErr == "" {
		stdErr = "/dev/null"
	}

	exitCodes := spec.ExitCodes
	if exitCodes == nil {
		exitCodes = []int{0}
	}

	autoRestart, err := model.ParseAutoRestart(nonEmpty(spec.AutoRestart, "unexpected"))
	if err != nil {
		return model.Definition{}, err
	}

	autoStart := true
	if spec.AutoStart != nil {
		autoStart = *spec.AutoStart
	}

	sigName := nonEmpty(spec.StopSignal, "TERM")
	sig, ok := signalNames[sigName]
	if !ok {
		return model.Definition{}, fmt.Errorf("unknown stopsignal %q", sigName)
	}

	var umask uint32
	if spec.Umask != "" {
		v, err := parseUmask(spec.Umask)
		if err != nil {
			return model.Definition{}, err
		}
		umask = v
	}

	startTimeMs := spec.StartTimeMs
	if startTimeMs == 0 {
		startTimeMs = 1000
	}
	stopTimeMs := spec.StopTimeMs
	if stopTimeMs == 0 {
		stopTimeMs = 10000
	}

	return model.Definition{
		Name:         spec.Name,
		Cmd:          spec.Cmd,
		Env:          spec.Env,
		StdOut:       stdOut,
		StdErr:       stdErr,
		WorkingDir:   spec.WorkingDir,
		ExitCodes:    exitCodes,
		NumProcs:     numProcs,
		Umask:        umask,
		AutoRestart:  autoRestart,
		StartRetries: spec.StartRetries,
		AutoStart:    autoStart,
		StopSignal:   sig,
		StartTime:    time.Duration(startTimeMs) * time.Millisecond,
		StopTime:     time.Duration(stopTimeMs) * time.Millisecond,
	}, nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func parseUmask(s string) (uint32, error) {
	var v uint32
	if _, err := fmt.Sscanf(s, "%o", &v); err != nil {
		return 0, fmt.Errorf("invalid umask %q: %w", s, err)
	}
	return v, nil
}
