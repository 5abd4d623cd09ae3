package cli

import (
	"github.com/spf13/cobra"
)

var sendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "Deliver a sample signal to the configured chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SendTest(cmd.Context())
	},
}
