// Command bptree-bench drives one tree per worker through a disjoint share
// of a workload read from a file and reports aggregate throughput,
// optionally verifying every worker's tree's structural invariants.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"bptreedb/pkg/btree"
	"bptreedb/pkg/config"
	"bptreedb/pkg/pagestore/memory"
	"bptreedb/pkg/verify"
)

// parseWorkload reads "<key> <value>" lines into ordered inserts.
func parseWorkload(path string) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var workload [][2]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		workload = append(workload, [2]string{fields[0], fields[1]})
	}
	return workload, scanner.Err()
}

type workerResult struct {
	tree             *btree.Tree
	inserted, failed int
}

// runWorker inserts every kv in share into its own tree, never touching any
// other worker's pages.
func runWorker(cfg config.Config, share [][2]string) workerResult {
	tree := btree.New(memory.New(), cfg)
	res := workerResult{tree: tree}
	for _, kv := range share {
		key, err := strconv.ParseUint(kv[0], 10, 64)
		if err != nil {
			res.failed++
			continue
		}
		if err := tree.Insert(key, []byte(kv[1])); err != nil {
			res.failed++
			continue
		}
		res.inserted++
	}
	return res
}

func main() {
	workloadFlag := flag.String("workload", "", "workload file of \"<key> <value>\" lines (required)")
	workersFlag := flag.Int("workers", 1, "number of workers, each inserting a disjoint share of the workload lines into its own tree")
	verifyFlag := flag.Bool("verify", false, "verify every worker's tree's structural invariants once the workload finishes")
	configFlag := flag.String("config", "", "YAML config file overriding split thresholds")
	flag.Parse()

	if *workloadFlag == "" {
		fmt.Fprintln(os.Stderr, "must specify -workload <file>")
		os.Exit(1)
	}
	if *workersFlag < 1 {
		fmt.Fprintln(os.Stderr, "-workers must be at least 1")
		os.Exit(1)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	workload, err := parseWorkload(*workloadFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	shares := make([][][2]string, *workersFlag)
	for i, kv := range workload {
		w := i % *workersFlag
		shares[w] = append(shares[w], kv)
	}

	results := make([]workerResult, *workersFlag)
	start := time.Now()
	var wg sync.WaitGroup
	for i, share := range shares {
		wg.Add(1)
		go func(i int, share [][2]string) {
			defer wg.Done()
			results[i] = runWorker(cfg, share)
		}(i, share)
	}
	wg.Wait()
	elapsed := time.Since(start)

	var inserted, failed int
	for _, r := range results {
		inserted += r.inserted
		failed += r.failed
	}
	fmt.Printf("inserted %d entries (%d failed) across %d workers in %s (%.0f/s)\n",
		inserted, failed, *workersFlag, elapsed, float64(inserted)/elapsed.Seconds())

	if *verifyFlag {
		for i, r := range results {
			if err := verify.Check(r.tree); err != nil {
				fmt.Fprintf(os.Stderr, "worker %d: verify failed: %v\n", i, err)
				os.Exit(1)
			}
		}
		fmt.Println("verify: ok")
	}
}
