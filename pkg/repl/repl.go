// Package repl implements a small, trigger-dispatched command loop: each
// command is a string prefix ("insert", "find", ...) mapped to a handler
// that receives the full input line and a per-session config.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ReplCommand handles one input line and returns the text to print.
type ReplCommand func(string, *REPLConfig) (output string, err error)

const (
	// TriggerHelpMetacommand prints every registered command's help string.
	TriggerHelpMetacommand = ".help"

	// ErrorPrependStr is prepended to any error before it reaches output.
	ErrorPrependStr = "ERROR: "
)

var (
	// ErrOverlappingCommands is returned by CombineRepls on a duplicate trigger.
	ErrOverlappingCommands = errors.New("found overlapping")

	// ErrCommandNotFound is returned when a trigger has no registered command.
	ErrCommandNotFound = errors.New("command not found")
)

// binding pairs one registered trigger with its handler and help text. A
// REPL keeps these in registration order plus an index for O(1) lookup, so
// HelpString output is stable instead of depending on map iteration order.
type binding struct {
	trigger string
	action  ReplCommand
	help    string
}

// REPL dispatches input lines to registered commands by their first word.
type REPL struct {
	order     []binding
	byTrigger map[string]int
}

// REPLConfig is handed to every command invocation for the session it runs in.
type REPLConfig struct {
	clientId uuid.UUID
}

// GetAddr returns the session's client id.
func (replConfig *REPLConfig) GetAddr() uuid.UUID {
	return replConfig.clientId
}

// NewRepl returns an empty REPL.
func NewRepl() *REPL {
	return &REPL{byTrigger: make(map[string]int)}
}

// CombineRepls merges repls into one, erroring if any two share a trigger.
func CombineRepls(repls []*REPL) (*REPL, error) {
	merged := NewRepl()
	for _, r := range repls {
		for _, b := range r.order {
			if _, exists := merged.byTrigger[b.trigger]; exists {
				return nil, ErrOverlappingCommands
			}
			merged.AddCommand(b.trigger, b.action, b.help)
		}
	}
	return merged, nil
}

// GetCommands returns the REPL's trigger -> handler map.
func (r *REPL) GetCommands() map[string]ReplCommand {
	out := make(map[string]ReplCommand, len(r.order))
	for _, b := range r.order {
		out[b.trigger] = b.action
	}
	return out
}

// GetHelp returns the REPL's trigger -> help-string map.
func (r *REPL) GetHelp() map[string]string {
	out := make(map[string]string, len(r.order))
	for _, b := range r.order {
		out[b.trigger] = b.help
	}
	return out
}

// AddCommand registers action under trigger, overwriting any prior command
// with the same trigger. Registering under TriggerHelpMetacommand is a no-op.
func (r *REPL) AddCommand(trigger string, action ReplCommand, help string) {
	if trigger == TriggerHelpMetacommand {
		return
	}
	if i, exists := r.byTrigger[trigger]; exists {
		r.order[i] = binding{trigger, action, help}
		return
	}
	r.byTrigger[trigger] = len(r.order)
	r.order = append(r.order, binding{trigger, action, help})
}

// HelpString renders every registered command's help text, one per line, in
// the order commands were registered.
func (r *REPL) HelpString() string {
	var sb strings.Builder
	for _, b := range r.order {
		sb.WriteString(fmt.Sprintf("%s: %s\n", b.trigger, b.help))
	}
	return sb.String()
}

// lookup returns the binding registered under trigger, if any.
func (r *REPL) lookup(trigger string) (binding, bool) {
	i, ok := r.byTrigger[trigger]
	if !ok {
		return binding{}, false
	}
	return r.order[i], true
}

// Run prints welcome, then reads lines from input and dispatches them until
// EOF, writing results (or errors) to output. input/output default to
// os.Stdin/os.Stdout when nil.
func (r *REPL) Run(clientId uuid.UUID, prompt string, input io.Reader, output io.Writer) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}

	cfg := &REPLConfig{clientId: clientId}
	fmt.Fprintln(output, "Welcome. Type '.help' to see the list of available commands.")
	io.WriteString(output, prompt)

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		r.runLine(scanner.Text(), cfg, output)
		io.WriteString(output, prompt)
	}
	io.WriteString(output, "\n")
}

// runLine dispatches one input line and writes its result or error to output.
func (r *REPL) runLine(payload string, cfg *REPLConfig, output io.Writer) {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return
	}
	trigger := fields[0]

	if trigger == TriggerHelpMetacommand {
		io.WriteString(output, r.HelpString())
		return
	}

	b, ok := r.lookup(trigger)
	if !ok {
		fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, ErrCommandNotFound)
		return
	}

	result, err := b.action(payload, cfg)
	if err != nil {
		fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, err)
		return
	}
	if len(result) != 0 && !strings.HasSuffix(result, "\n") {
		result += "\n"
	}
	io.WriteString(output, result)
}
