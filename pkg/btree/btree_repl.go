package btree

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/icza/backscanner"

	"bptreedb/pkg/repl"
)

// saver is implemented by page stores that can snapshot themselves to disk
// (pagestore/disk.Store); pagestore/memory.Store does not implement it.
type saver interface {
	Save() error
}

// Repl returns a REPL wired to tree, with commands to insert, find, scan
// and print the tree, save it if its store supports persistence, and tail
// the command history file at historyPath.
func Repl(tree *Tree, historyPath string) *repl.REPL {
	r := repl.NewRepl()

	r.AddCommand("insert", func(payload string, _ *repl.REPLConfig) (string, error) {
		fields := strings.Fields(payload)
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: insert <key> <value>")
		}
		key, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return "", fmt.Errorf("insert error: %w", err)
		}
		if err := tree.Insert(key, []byte(fields[2])); err != nil {
			return "", fmt.Errorf("insert error: %w", err)
		}
		return "", nil
	}, "Insert a key-value pair. usage: insert <key> <value>")

	r.AddCommand("find", func(payload string, _ *repl.REPLConfig) (string, error) {
		fields := strings.Fields(payload)
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: find <key>")
		}
		key, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return "", fmt.Errorf("find error: %w", err)
		}
		c := tree.Find(key)
		if c.AtEnd() || c.Entry().Key != key {
			return "", fmt.Errorf("find error: key %d not found", key)
		}
		return fmt.Sprintf("found entry: (%d, %s)\n", key, c.Value()), nil
	}, "Find the value for a key. usage: find <key>")

	r.AddCommand("scan", func(payload string, _ *repl.REPLConfig) (string, error) {
		w := new(strings.Builder)
		for _, e := range tree.Scan() {
			fmt.Fprintf(w, "(%d, %s)\n", e.Key, e.Value)
		}
		return w.String(), nil
	}, "List every entry in ascending key order. usage: scan")

	r.AddCommand("print", func(payload string, _ *repl.REPLConfig) (string, error) {
		w := new(strings.Builder)
		tree.Print(w)
		return w.String(), nil
	}, "Pretty-print the tree's page structure. usage: print")

	r.AddCommand("save", func(payload string, _ *repl.REPLConfig) (string, error) {
		s, ok := tree.Store().(saver)
		if !ok {
			return "", fmt.Errorf("save error: store is not persistent")
		}
		if err := s.Save(); err != nil {
			return "", fmt.Errorf("save error: %w", err)
		}
		return "saved.\n", nil
	}, "Snapshot the tree to disk, if its store supports it. usage: save")

	r.AddCommand(".last", func(payload string, _ *repl.REPLConfig) (string, error) {
		fields := strings.Fields(payload)
		n := 10
		if len(fields) == 2 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return "", fmt.Errorf("usage: .last <n>")
			}
			n = v
		}
		return lastLines(historyPath, n)
	}, "Show the last n lines of the command history file. usage: .last <n>")

	return r
}

// lastLines returns up to n lines from the tail of the file at path, in
// the order they were written.
func lastLines(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf(".last error: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf(".last error: %w", err)
	}

	scanner := backscanner.New(f, int(info.Size()))
	lines := make([]string, 0, n)
	for len(lines) < n {
		line, _, err := scanner.Line()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf(".last error: %w", err)
		}
		lines = append(lines, line)
	}
	// backscanner yields newest-first; reverse to restore chronological order.
	var w strings.Builder
	for i := len(lines) - 1; i >= 0; i-- {
		w.WriteString(lines[i])
		w.WriteByte('\n')
	}
	return w.String(), nil
}
