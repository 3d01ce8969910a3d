package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/matching"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		s := newSession(ctx)

		jd, err := matching.NewSummarizer(s.client, s.logger).Summarize(ctx, s.jobDescriptionText(ctx, cmd))
		if err != nil {
			s.logger.Fatal("summarizing job description", zap.Error(err))
		}

		if err := printJSON(cmd, jd); err != nil {
			s.logger.Fatal("writing summary", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	addJobDescriptionFlags(summarizeCmd)
}
