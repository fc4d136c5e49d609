package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <deal-id>",
	Short: "Run a due-diligence analysis against a deal",
	Long: `Run the agent pipeline against a deal and wait for the verdict.

Examples:
  # Full analysis, every tier
  angeldesk analyze acme-robotics

  # Screening pass: tier-1 investigators only
  angeldesk analyze acme-robotics --tiers 1`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeTiers []int
	analyzeJSON  bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntSliceVar(&analyzeTiers, "tiers", nil,
		"tiers to run (default: all)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false,
		"output the full analysis record as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	var progress *progressPrinter
	if !quiet && !analyzeJSON {
		progress = startProgress(a.bus)
	}

	analysis, err := a.orch.Start(cmd.Context(), args[0], analyzeTiers)
	if progress != nil {
		progress.stop()
	}
	if err != nil {
		return err
	}

	if analyzeJSON {
		return outputJSON(analysis)
	}
	printAnalysis(analysis)
	return nil
}

func printAnalysis(a *core.Analysis) {
	fmt.Println()
	fmt.Printf("Analysis:  %s\n", a.ID)
	fmt.Printf("Deal:      %s\n", a.DealID)
	fmt.Printf("Mode:      %s\n", a.Mode)
	fmt.Printf("Status:    %s\n", a.Status)
	fmt.Printf("Agents:    %d/%d completed\n", a.CompletedAgents, a.TotalAgents)
	fmt.Printf("Cost:      $%.4f\n", a.TotalCostUSD)
	if a.Error != "" {
		fmt.Printf("Error:     %s\n", a.Error)
	}
	if len(a.Results) == 0 {
		return
	}
	fmt.Println()

	names := make([]string, 0, len(a.Results))
	for name := range a.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tRESULT\tSCORE\tATTEMPTS\tCOST\tTIME")
	for _, name := range names {
		r := a.Results[name]
		outcome := "ok"
		score := "-"
		if r.Success {
			if v, ok := r.Data["score"].(float64); ok {
				score = fmt.Sprintf("%.0f", v)
			}
		} else {
			outcome = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t$%.4f\t%dms\n",
			name, outcome, score, r.Attempts, r.CostUSD, r.ExecutionTimeMs)
	}
	w.Flush()

	if syn, ok := a.Results["synthesis"]; ok && syn.Success {
		if rec, ok := syn.Data["recommendation"].(string); ok {
			fmt.Println()
			fmt.Printf("Recommendation: %s\n", rec)
		}
	}
}
