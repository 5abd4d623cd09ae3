package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check Telegram Bot API connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getApp().Probe(cmd.Context()); err != nil {
			return fmt.Errorf("telegram probe failed: %w", err)
		}
		fmt.Println("telegram connection ok")
		return nil
	},
}
