package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/pipeline"
)

var (
	topK    int
	outJSON bool
)

// assessCmd represents the assess command
var assessCmd = &cobra.Command{
	Use:   "assess <patient_id>",
	Short: "Assess one patient against NG12 urgent referral criteria",
	Long: `Assess loads a patient record, retrieves NG12 passages, extracts
matched criteria and prints the referral decision with citations.

Example:
  ng12agent assess PT-101
  ng12agent assess PT-101 --top-k 8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		res, err := a.Assessor.Assess(cmd.Context(), args[0], topK)
		if err != nil {
			return err
		}
		if outJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printAssessment(cmd.OutOrStdout(), res)
		return nil
	},
}

// retrieveCmd represents the retrieve command
var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Run raw retrieval and print hits with diagnostics",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		res, err := pipeline.DebugRetrieve(cmd.Context(), a.Retriever, strings.Join(args, " "), topK)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(retrieveCmd)

	for _, c := range []*cobra.Command{assessCmd, retrieveCmd} {
		c.Flags().IntVarP(&topK, "top-k", "k", 0, "passages to retrieve (0 uses retrieval.default_top_k)")
	}
	assessCmd.Flags().BoolVar(&outJSON, "json", false, "print the raw JSON result")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAssessment(w io.Writer, res model.AssessResult) {
	fmt.Fprintf(w, "Patient:     %s\n", res.PatientID)
	fmt.Fprintf(w, "Assessment:  %s (confidence %.2f)\n", res.Assessment, res.Confidence)
	fmt.Fprintf(w, "Reasoning:   %s\n", res.Reasoning)
	d := res.RetrievalDiagnostics
	fmt.Fprintf(w, "Retrieval:   %d hits, top score %.3f, k-th score %.3f\n", d.Count, d.TopScore, d.KScore)
	printCitations(w, res.Citations)
}

func printCitations(w io.Writer, citations []model.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Fprintf(w, "\nCitations:\n")
	for i, c := range citations {
		fmt.Fprintf(w, "  [%d] %s p.%d (%s)\n", i+1, c.Source, c.Page, c.ChunkID)
		if c.Excerpt != "" {
			fmt.Fprintf(w, "      %q\n", c.Excerpt)
		}
	}
}
