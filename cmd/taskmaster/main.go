// Command taskmaster is the foreground, interactive process supervisor
// described by this repository: it starts, stops, restarts, monitors, and
// reloads a declared set of long-running child programs (SPEC_FULL.md §1).
//
// Grounded on the teacher's main.go for the overall shape (flag parsing,
// startup sequence, wiring collaborators, exit codes), expanded per
// SPEC_FULL.md §6 ("CLI: supervisor -f <config-path>").
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/kornnellio/taskmaster/internal/command"
	"github.com/kornnellio/taskmaster/internal/config"
	"github.com/kornnellio/taskmaster/internal/lineedit"
	"github.com/kornnellio/taskmaster/internal/logging"
	"github.com/kornnellio/taskmaster/internal/supervisor"
	"github.com/kornnellio/taskmaster/internal/term"
)

func main() {
	os.Exit(run())
}

// run implements the full startup sequence and exit-code contract of §6:
// 0 on operator `exit`, 1 on any startup failure (config open/parse/
// validate, foreground acquisition, log open).
func run() int {
	var configPath string
	flag.StringVar(&configPath, "f", "", "path to the configuration file")
	flag.Parse()

	if configPath == "" || flag.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "usage: taskmaster -f <config-path>")
		return 1
	}

	logger, logFile, err := logging.Open("taskmaster.log", "taskmaster")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logFile.Close()

	defs, err := config.Load(configPath)
	if err != nil {
		logger.Errorf("startup: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if _, err := term.AcquireForeground(0); err != nil {
		logger.Errorf("startup: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	term.IgnoreInteractiveSignals()

	sup, err := supervisor.New(defs, logger, configPath)
	if err != nil {
		logger.Errorf("startup: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	editor, err := lineedit.New(sup.ProgramNames)
	if err != nil {
		logger.Errorf("startup: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer editor.Close()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, unix.SIGHUP)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := editor.ReadLine()
			if err != nil {
				return
			}
			lines <- line
		}
	}()

	sup.Run(lines, hup, func(line string) {
		dispatchLine(sup, line)
	})

	return 0
}

// dispatchLine parses one operator line and executes it against sup,
// printing either the command's output or a parse error (§4.5: parse errors
// are "all non-fatal, reported to the operator, no state change").
func dispatchLine(sup *supervisor.Supervisor, line string) {
	cmd, err := command.Parse(line, sup.ProgramExists)
	if err != nil {
		fmt.Println(err)
		return
	}

	switch cmd.Verb {
	case command.VerbStatus:
		fmt.Print(sup.Status(cmd.Args))
	case command.VerbStart:
		for _, name := range cmd.Args {
			sup.Start(name)
		}
	case command.VerbStop:
		for _, name := range cmd.Args {
			sup.Stop(name)
		}
	case command.VerbRestart:
		for _, name := range cmd.Args {
			sup.Restart(name)
		}
	case command.VerbReload:
		if err := sup.Reload(sup.ConfigPath()); err != nil {
			fmt.Printf("reload failed: %v\n", err)
		}
	case command.VerbExit:
		sup.Exit()
	case command.VerbHelp:
		fmt.Print(command.HelpText)
	}
}
