package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <analysis-id>",
	Short: "Resume a failed analysis from its last checkpoint",
	Long: `Re-run only the agents a failed analysis still owes. Agents recorded
as completed in the latest checkpoint keep their results; the rest are
re-staged in dependency order. Resuming a completed analysis is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

var resumeJSON bool

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().BoolVar(&resumeJSON, "json", false,
		"output the full analysis record as JSON")
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	var progress *progressPrinter
	if !quiet && !resumeJSON {
		progress = startProgress(a.bus)
	}

	analysis, err := a.resumer.Resume(cmd.Context(), core.AnalysisID(args[0]))
	if progress != nil {
		progress.stop()
	}
	if err != nil {
		return err
	}

	if resumeJSON {
		return outputJSON(analysis)
	}
	printAnalysis(analysis)
	return nil
}
