package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/kornnellio/taskmaster/internal/config"
	"github.com/kornnellio/taskmaster/internal/model"
)

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "taskmaster.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, `
programs:
  - name: webapp
    cmd: ["/bin/true"]
`)

	defs, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}

	d := defs[0]
	if d.StdOut != "/dev/null" || d.StdErr != "/dev/null" {
		t.Fatalf("std streams should default to /dev/null, got %q/%q", d.StdOut, d.StdErr)
	}
	if len(d.ExitCodes) != 1 || d.ExitCodes[0] != 0 {
		t.Fatalf("exitcodes should default to {0}, got %v", d.ExitCodes)
	}
	if d.NumProcs != 1 {
		t.Fatalf("numprocs should default to 1, got %d", d.NumProcs)
	}
	if d.AutoRestart != model.AutoRestartUnexpected {
		t.Fatalf("autorestart should default to unexpected, got %v", d.AutoRestart)
	}
	if !d.AutoStart {
		t.Fatalf("autostart should default to true")
	}
	if d.StopSignal != unix.SIGTERM {
		t.Fatalf("stopsignal should default to TERM, got %v", d.StopSignal)
	}
	if d.StartTime.Milliseconds() != 1000 {
		t.Fatalf("starttime_ms should default to 1000, got %v", d.StartTime)
	}
	if d.StopTime.Milliseconds() != 10000 {
		t.Fatalf("stoptime_ms should default to 10000, got %v", d.StopTime)
	}
}

func TestLoadFullySpecified(t *testing.T) {
	path := writeTemp(t, `
programs:
  - name: webapp
    cmd: ["/usr/bin/webapp", "--port", "8080"]
    env: ["KEY=VALUE"]
    std_out: /var/log/webapp.stdout.log
    std_err: /var/log/webapp.stderr.log
    workingdir: /srv/webapp
    exitcodes: [0, 2]
    numprocs: 4
    umask: "022"
    autorestart: unexpected
    startretries: 3
    autostart: true
    stopsignal: TERM
    starttime_ms: 1000
    stoptime_ms: 10000
`)

	defs, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := defs[0]
	if d.NumProcs != 4 {
		t.Fatalf("numprocs = %d, want 4", d.NumProcs)
	}
	if d.Umask != 0o022 {
		t.Fatalf("umask = %o, want 022", d.Umask)
	}
	if !d.ExpectedExitCode(2) {
		t.Fatalf("exitcodes should contain 2")
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	path := writeTemp(t, `
programs:
  - name: dup
    cmd: ["/bin/true"]
  - name: dup
    cmd: ["/bin/false"]
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected an error for duplicate program names")
	}
}

func TestLoadRejectsEmptyCmd(t *testing.T) {
	path := writeTemp(t, `
programs:
  - name: broken
    cmd: []
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected an error for empty cmd")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeTemp(t, `
programs:
  - name: webapp
    cmd: ["/bin/true"]
    bogus_field: 1
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected an error for unknown field")
	}
}

func TestLoadRejectsUnknownStopSignal(t *testing.T) {
	path := writeTemp(t, `
programs:
  - name: webapp
    cmd: ["/bin/true"]
    stopsignal: BOGUS
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected an error for unknown stopsignal")
	}
}

func TestLoadRejectsBadAutoRestart(t *testing.T) {
	path := writeTemp(t, `
programs:
  - name: webapp
    cmd: ["/bin/true"]
    autorestart: sometimes
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected an error for invalid autorestart value")
	}
}

func TestLoadRejectsNegativeNumProcs(t *testing.T) {
	// numprocs: 0 is indistinguishable from "unset" in YAML for an int field,
	// so it defaults to 1 rather than erroring; negative values must fail.
	path := writeTemp(t, `
programs:
  - name: webapp
    cmd: ["/bin/true"]
    numprocs: -1
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected an error for negative numprocs")
	}
}
