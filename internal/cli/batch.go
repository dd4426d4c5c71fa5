package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ng12agent/internal/report"
	"github.com/ppiankov/ng12agent/internal/worker"
)

var (
	concurrency  int
	batchOutput  string
	batchTimeout time.Duration
	batchAll     bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Assess many patients in parallel",
	Long: `Batch assesses patients concurrently:
- Read patient ids from an input file (one per line, # comments allowed)
  or take every patient in the patient store with --all
- Assess patients in parallel with a configurable worker count
- Write all results to a JSON or XLSX file (chosen by extension)

Example:
  ng12agent batch ids.txt
  ng12agent batch ids.txt --concurrency 8 --out results.xlsx
  ng12agent batch --all --out all.json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if batchAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVarP(&batchOutput, "out", "o", "ng12-batch.json", "output file (.json or .xlsx)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchAll, "all", false, "assess every patient in the patient store")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var ids []string
	source := "patient store"
	if batchAll {
		records, err := a.Patients.List(ctx)
		if err != nil {
			return fmt.Errorf("list patients: %w", err)
		}
		for _, p := range records {
			ids = append(ids, p.ID)
		}
	} else {
		source = args[0]
		if ids, err = worker.ReadIDsFromFile(source); err != nil {
			return fmt.Errorf("read patient ids: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  ng12agent Batch Assessment\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", source)
	fmt.Fprintf(os.Stderr, "  Patients:     %d\n", len(ids))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", batchOutput)
	fmt.Fprintf(os.Stderr, "  LLM:          %s\n", a.LLM.ProviderName())
	fmt.Fprintf(os.Stderr, "\n")

	results := worker.NewBatchAssessor(a, concurrency).AssessAll(ctx, ids)
	entries := report.Entries(results)

	for _, e := range entries {
		if e.Result == nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", e.PatientID, e.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %s (%.2f)\n", e.PatientID, e.Result.Assessment, e.Result.Confidence)
	}

	if err := report.Write(batchOutput, entries); err != nil {
		return err
	}

	summary := report.Summarize(entries)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d patients\n", summary.Total)
	for label, n := range summary.ByLabel {
		fmt.Fprintf(os.Stderr, "  %-16s %d\n", string(label)+":", n)
	}
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", summary.Failures)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOutput)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
