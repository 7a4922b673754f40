// Command bptree runs an interactive REPL over a B+tree index.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"bptreedb/pkg/btree"
	"bptreedb/pkg/config"
	"bptreedb/pkg/pagestore/disk"
	"bptreedb/pkg/pagestore/memory"
)

func setupCloseHandler(tree *btree.Tree) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		if s, ok := tree.Store().(interface{ Save() error }); ok {
			if err := s.Save(); err != nil {
				fmt.Fprintln(os.Stderr, "save on exit:", err)
			}
		}
		os.Exit(0)
	}()
}

func main() {
	dbFlag := flag.String("db", "", "snapshot file; empty runs fully in-memory")
	configFlag := flag.String("config", "", "YAML config file overriding split thresholds")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	tree, closeStore, err := openTree(*dbFlag, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeStore()
	setupCloseHandler(tree)

	historyFile, err := os.OpenFile(cfg.HistoryFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer historyFile.Close()

	r := btree.Repl(tree, cfg.HistoryFile)
	input := io.TeeReader(os.Stdin, historyFile)
	r.Run(uuid.New(), config.Prompt, input, os.Stdout)
}

func openTree(dbPath string, cfg config.Config) (*btree.Tree, func(), error) {
	if dbPath == "" {
		return btree.New(memory.New(), cfg), func() {}, nil
	}
	store, err := disk.New(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	tree := btree.New(store, cfg)
	return tree, func() { store.Save() }, nil
}
