package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sacha-rebbouh/angeldesk/internal/adapters/store"
	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status [analysis-id]",
	Short: "Show analysis status",
	Long: `Without arguments, list all analyses. With an analysis ID, show its
full record including per-agent results and checkpoint history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(st) }()

	if len(args) == 0 {
		return listAnalyses(cmd, st)
	}
	return showAnalysis(cmd, st, core.AnalysisID(args[0]))
}

func listAnalyses(cmd *cobra.Command, st core.AnalysisStore) error {
	summaries, err := st.ListAnalyses(cmd.Context())
	if err != nil {
		return err
	}
	if statusJSON {
		return outputJSON(summaries)
	}
	if len(summaries) == 0 {
		fmt.Println("No analyses")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDEAL\tMODE\tSTATUS\tAGENTS\tCOST\tUPDATED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t$%.4f\t%s\n",
			s.ID, s.DealID, s.Mode, s.Status,
			s.CompletedAgents, s.TotalAgents, s.TotalCostUSD,
			s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func showAnalysis(cmd *cobra.Command, st core.AnalysisStore, id core.AnalysisID) error {
	analysis, err := st.GetAnalysis(cmd.Context(), id)
	if err != nil {
		return err
	}
	checkpoints, err := st.ListCheckpoints(cmd.Context(), id)
	if err != nil {
		return err
	}

	if statusJSON {
		return outputJSON(map[string]any{
			"analysis":    analysis,
			"checkpoints": checkpoints,
		})
	}

	printAnalysis(analysis)
	if len(checkpoints) > 0 {
		fmt.Println()
		fmt.Printf("Checkpoints (%d):\n", len(checkpoints))
		for _, cp := range checkpoints {
			fmt.Printf("  %s  completed=%d failed=%d  %s\n",
				cp.ID, len(cp.CompletedAgents), len(cp.FailedAgents),
				cp.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
