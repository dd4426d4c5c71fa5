// Program to run the reference clinical scenarios against a built index.
// It shows the referral decision, the evidence gate and chat carry-over
// working end to end with whatever providers are configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/ng12agent/internal/app"
	"github.com/ppiankov/ng12agent/internal/logging"
	"github.com/ppiankov/ng12agent/internal/model"
)

func main() {
	verbose := flag.Bool("v", false, "debug logging")
	index := flag.String("index", "", "vector store path (default from config defaults)")
	patients := flag.String("patients", "", "patients file (default from config defaults)")
	flag.Parse()

	logger, err := logging.New(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := model.DefaultConfig()
	if *index != "" {
		cfg.VectorStore.Path = *index
	}
	if *patients != "" {
		cfg.Patients.Path = *patients
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("=== NG12 Scenario Run ===")
	fmt.Printf("LLM: %s  Embedder: %s\n\n", a.LLM.ProviderName(), a.Embedder.Name())

	fmt.Println("Assessments")
	fmt.Println(strings.Repeat("-", 60))
	for _, id := range flag.Args() {
		res, err := a.Assessor.Assess(ctx, id, 0)
		if err != nil {
			fmt.Printf("  ✗ %s: %v\n", id, err)
			continue
		}
		fmt.Printf("  %s: %s (%.2f), top score %.3f\n", id, res.Assessment, res.Confidence, res.RetrievalDiagnostics.TopScore)
		for _, c := range res.Citations {
			fmt.Printf("     - p.%d %s\n", c.Page, c.ChunkID)
		}
	}

	fmt.Println()
	fmt.Println("Chat carry-over")
	fmt.Println(strings.Repeat("-", 60))
	session := uuid.NewString()
	for _, q := range []string{
		"When should adults with visible haematuria be referred?",
		"And what if they are younger than that?",
	} {
		res, err := a.Chat.Chat(ctx, session, q, 0)
		if err != nil {
			fmt.Printf("  ✗ %q: %v\n", q, err)
			continue
		}
		ids := make([]string, 0, len(res.Citations))
		for _, c := range res.Citations {
			ids = append(ids, c.ChunkID)
		}
		fmt.Printf("  Q: %s\n  A: %s\n     citations: %s\n\n", q, res.Answer, strings.Join(ids, ", "))
	}

	fmt.Println("=== Run Complete ===")
	fmt.Println("\nPass patient ids as arguments, e.g. ng12-scenarios PT-101 PT-110")
}
