package repl_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"bptreedb/pkg/repl"
)

func f1(s string, _ *repl.REPLConfig) (string, error) { return "", nil }

func echo(s string, _ *repl.REPLConfig) (string, error) { return s, nil }

func TestNewReplIsEmpty(t *testing.T) {
	r := repl.NewRepl()
	if len(r.GetCommands()) != 0 {
		t.Fatal("commands should be empty")
	}
	if len(r.GetHelp()) != 0 {
		t.Fatal("help should be empty")
	}
}

func TestAddCommandRegistersCommandAndHelp(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("echo", echo, "echoes its input")
	if _, ok := r.GetCommands()["echo"]; !ok {
		t.Error("command was not registered")
	}
	if _, ok := r.GetHelp()["echo"]; !ok {
		t.Error("help was not registered")
	}
}

func TestAddCommandCannotOverwriteHelpMetacommand(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand(repl.TriggerHelpMetacommand, f1, "fake help")
	if _, ok := r.GetCommands()[repl.TriggerHelpMetacommand]; ok {
		t.Error("should not be able to register a command under the help trigger")
	}
}

func TestHelpStringContainsEveryRegisteredCommand(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("1", f1, "1 help")
	r.AddCommand("2", f1, "2 help")
	help := r.HelpString()
	if !strings.Contains(help, "1: 1 help\n") || !strings.Contains(help, "2: 2 help\n") {
		t.Errorf("HelpString() = %q, missing a registered command's help line", help)
	}
}

func TestCombineReplsOfEmptySliceIsEmpty(t *testing.T) {
	r, err := repl.CombineRepls(nil)
	if err != nil {
		t.Fatalf("CombineRepls: %v", err)
	}
	if len(r.GetCommands()) != 0 {
		t.Error("combining zero REPLs should yield an empty REPL")
	}
}

func TestCombineReplsMergesDistinctCommands(t *testing.T) {
	a := repl.NewRepl()
	a.AddCommand("a", f1, "a help")
	b := repl.NewRepl()
	b.AddCommand("b", f1, "b help")

	combined, err := repl.CombineRepls([]*repl.REPL{a, b})
	if err != nil {
		t.Fatalf("CombineRepls: %v", err)
	}
	if _, ok := combined.GetCommands()["a"]; !ok {
		t.Error("missing command from first REPL")
	}
	if _, ok := combined.GetCommands()["b"]; !ok {
		t.Error("missing command from second REPL")
	}
}

func TestCombineReplsRejectsOverlappingTriggers(t *testing.T) {
	a := repl.NewRepl()
	a.AddCommand("x", f1, "a's x")
	b := repl.NewRepl()
	b.AddCommand("x", f1, "b's x")

	if _, err := repl.CombineRepls([]*repl.REPL{a, b}); err != repl.ErrOverlappingCommands {
		t.Fatalf("got %v, want ErrOverlappingCommands", err)
	}
}

func runRepl(r *repl.REPL, lines ...string) string {
	input := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var output strings.Builder
	r.Run(uuid.New(), "", input, &output)
	return output.String()
}

func TestRunEchoesCommandOutput(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("echo", echo, "echoes its input")
	out := runRepl(r, "echo hey")
	if !strings.Contains(out, "echo hey\n") {
		t.Errorf("output %q missing echoed line", out)
	}
}

func TestRunReportsUnknownCommand(t *testing.T) {
	r := repl.NewRepl()
	out := runRepl(r, "bogus")
	want := repl.ErrorPrependStr + repl.ErrCommandNotFound.Error()
	if !strings.Contains(out, want) {
		t.Errorf("output %q missing %q", out, want)
	}
}

func TestRunHelpMetacommandPrintsEveryCommand(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("echo", echo, "echoes its input")
	out := runRepl(r, repl.TriggerHelpMetacommand)
	if !strings.Contains(out, "echo: echoes its input\n") {
		t.Errorf("output %q missing help line", out)
	}
}
