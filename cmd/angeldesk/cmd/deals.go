package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sacha-rebbouh/angeldesk/internal/adapters/deals"
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "List deals available for analysis",
	RunE:  runDeals,
}

func init() {
	rootCmd.AddCommand(dealsCmd)
}

func runDeals(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ids, err := deals.NewFileProvider(cfg.Deals.Dir).ListDeals()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Printf("No deals in %s\n", cfg.Deals.Dir)
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
