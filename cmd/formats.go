package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported formats and their extraction strategies",
	Run: func(cmd *cobra.Command, _ []string) {
		s := newSession(context.Background())

		if err := printJSON(cmd, s.registry.Describe()); err != nil {
			s.logger.Fatal("writing formats", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
