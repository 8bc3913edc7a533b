// Package logging wires the supervisor's Logger collaborator (SPEC_FULL.md
// §1.1, §6.2): a level-tagged, line-structured, append-only sink. The core
// only ever calls the exported helpers on *logrus.Entry-shaped loggers; this
// package is solely responsible for the line shape.
//
// Grounded on two other pack examples that supervise a child process and log
// through logrus (other_examples' k0s pkg/supervisor/supervisor.go and
// roost's internal/watchdog/supervisor.go, both using logrus.FieldLogger and
// WithField), combined with original_source/src/ft_log.c's exact line shape:
// "%F, %T " + ident + " [" + level + "]: " + message.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

const timeFormat = "2006-01-02, 15:04:05"

// LineFormatter renders log entries as
// "<date>, <time> <ident> [<LEVEL>]: <message>" (§6 "Log records").
type LineFormatter struct {
	Ident string
}

// Format implements logrus.Formatter.
func (f LineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level := levelTag(e.Level)
	line := fmt.Sprintf("%s %s [%s]: %s\n", e.Time.Format(timeFormat), f.Ident, level, e.Message)
	return []byte(line), nil
}

func levelTag(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel:
		return "CRIT"
	case logrus.ErrorLevel:
		return "ERR"
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.DebugLevel, logrus.TraceLevel:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// Open opens (or creates) the supervisor-wide append-only log file at path
// and returns a *logrus.Logger writing to it with ident as the program
// identity tag (mirrors original_source's ft_openlog(identity, TM_LOGFILE)).
func Open(path, ident string) (*logrus.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	log := logrus.New()
	log.SetOutput(f)
	log.SetFormatter(LineFormatter{Ident: ident})
	log.SetLevel(logrus.DebugLevel)
	return log, f, nil
}
