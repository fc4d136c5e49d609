package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sacha-rebbouh/angeldesk/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and environment",
	Long:  "Verify the store, deals directory and completion API are usable, and report host resources.",
	RunE:  runDoctor,
}

var doctorJSON bool

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output as JSON")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checks := diagnostics.RunChecks(cmd.Context(), cfg)
	snapshot := diagnostics.CollectSnapshot(cmd.Context())

	if doctorJSON {
		return outputJSON(map[string]any{
			"checks": checks,
			"system": snapshot,
		})
	}

	fmt.Println("Checking environment...")
	fmt.Println()

	failed := false
	for _, check := range checks {
		icon := "✓"
		switch check.Status {
		case diagnostics.StatusWarn:
			icon = "!"
		case diagnostics.StatusFail:
			icon = "✗"
			failed = true
		}
		fmt.Printf("  %s %s", icon, check.Name)
		if check.Detail != "" {
			fmt.Printf(" — %s", check.Detail)
		}
		fmt.Println()
	}

	fmt.Println()
	fmt.Printf("System: %s/%s, %s, %d CPUs\n",
		snapshot.OS, snapshot.Arch, snapshot.GoVersion, snapshot.CPUCores)
	if snapshot.MemTotalMB > 0 {
		fmt.Printf("Memory: %.0f/%.0f MB used\n", snapshot.MemUsedMB, snapshot.MemTotalMB)
	}
	if snapshot.DiskTotalGB > 0 {
		fmt.Printf("Disk:   %.1f/%.1f GB used\n", snapshot.DiskUsedGB, snapshot.DiskTotalGB)
	}

	if failed {
		return fmt.Errorf("one or more checks failed")
	}
	return nil
}
