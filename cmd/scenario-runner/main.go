// Package main - scenario-runner
// Runs the headless progression scenario against a throwaway save directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kylechrisking/it-empire-idle/internal/infra/storage"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
	"github.com/kylechrisking/it-empire-idle/test"
)

func main() {
	verbose := flag.Bool("v", false, "log engine activity")
	flag.Parse()

	fmt.Println("IT EMPIRE - SCENARIO SUITE")
	fmt.Println("================================================")

	dir, err := os.MkdirTemp("", "empire-scenario-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, "temp dir:", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	repo, err := storage.NewFileSaveRepository(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "save repository:", err)
		os.Exit(1)
	}

	log := logger.Discard()
	if *verbose {
		log = logger.New(os.Stderr, "debug", "text")
	}

	scenario := test.NewProgressionScenario(repo, log)
	scenario.Run(context.Background())

	passed, failed := 0, 0
	for _, r := range scenario.Results() {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("   Passed: %d\n", passed)
	fmt.Printf("   Failed: %d\n", failed)

	if failed > 0 {
		fmt.Println("\nThe economy needs rebalancing")
		os.Exit(1)
	}
	fmt.Println("\nThe economy behaves as configured")
}
