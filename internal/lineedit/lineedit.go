// Package lineedit wires the Line editor / completion provider collaborator
// (SPEC_FULL.md §1, §6 "Interactive protocol") on top of
// `github.com/chzyer/readline`: history-backed line reading with a
// completion vocabulary of the fixed command verbs plus the supervisor's
// current non-deleted program names.
//
// Grounded on other_examples' haricheung-agentic-shell cmd/agsh/main.go,
// which drives the same library for an interactive shell prompt with a
// dynamic completion set.
package lineedit

import (
	"strings"

	"github.com/chzyer/readline"
)

// Prompt is the literal interactive prompt required by §6.
const Prompt = "supervisor$ "

var verbs = []string{"status", "start", "stop", "restart", "reload", "exit", "help"}

// completer implements readline.AutoCompleter against a live program-name
// source so the vocabulary tracks reloads without rebuilding the editor
// (§6 "Completion set is the command verbs plus the names of non-deleted
// programs").
type completer struct {
	names func() []string
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	word := string(line[:pos])
	if i := strings.LastIndexByte(word, ' '); i >= 0 {
		word = word[i+1:]
	}

	var candidates []string
	candidates = append(candidates, verbs...)
	candidates = append(candidates, c.names()...)

	var out [][]rune
	for _, cand := range candidates {
		if strings.HasPrefix(cand, word) {
			out = append(out, []rune(cand[len(word):]))
		}
	}
	return out, len(word)
}

// Editor wraps a readline instance configured with the prompt and dynamic
// completer above.
type Editor struct {
	rl *readline.Instance
}

// New constructs an Editor. names is called on every completion request and
// should return the supervisor's current non-deleted program names.
func New(names func() []string) (*Editor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       Prompt,
		AutoComplete: &completer{names: names},
	})
	if err != nil {
		return nil, err
	}
	return &Editor{rl: rl}, nil
}

// ReadLine blocks for one line of operator input (§4.4's "read_line").
func (e *Editor) ReadLine() (string, error) {
	return e.rl.Readline()
}

// Close releases the underlying terminal state.
func (e *Editor) Close() error {
	return e.rl.Close()
}
