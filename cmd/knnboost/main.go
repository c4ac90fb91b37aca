// Command knnboost fits a KNN spatial booster on a CSV table.
//
// Usage:
//
//	knnboost [flags] <command>
//
// Commands:
//
//	evaluate  - fit on a train split, report booster and baseline R² on the test split
//	enrich    - write the neighbour-widened feature matrix (CSV, gob, npy or gomlx tensor)
//	plot      - write a predicted-vs-actual scatter PNG for the test split
//	config    - print the effective configuration
//	inspect   - print the shape and first rows of a written matrix
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
