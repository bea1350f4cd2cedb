// Package main provides the entry point for Systolic-Tensors, a
// cycle-accurate systolic-array matrix multiplication engine built on Akita.
//
// For the full CLI, use: go run ./cmd/systolic
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("Systolic-Tensors - Cycle-Accurate Systolic Array Engine")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: systolic [options] <gen|run|verify>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to array configuration JSON file")
	fmt.Println("  -flow      Dataflow to run: os, ws, or both")
	fmt.Println("  -k         Reduction dimension length")
	fmt.Println("  -seed      Stimulus generation seed")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/systolic' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/systolic' instead.")
	}
}
