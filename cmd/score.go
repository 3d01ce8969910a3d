package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/matching"
)

var scoreCmd = &cobra.Command{
	Use:   "score [flags] resume...",
	Short: "Score résumé files against a job description",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		score(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	addJobDescriptionFlags(scoreCmd)
	scoreCmd.Flags().Bool("summary", false, "summarize the job description before scoring")
}

type scoreOutput struct {
	JobDescription *matching.JobDescription `json:"job_description,omitempty"`
	Report         *matching.Report         `json:"report"`
}

func score(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := newSession(ctx)
	logger := s.logger

	logger.Info("starting the resume-matcher", zap.String("version", version), zap.String("strategy", s.cfg.AI.Strategy))

	jdText := s.jobDescriptionText(ctx, cmd)

	out := scoreOutput{}
	if cmd.Flag("summary").Value.String() == "true" {
		jd, err := matching.NewSummarizer(s.client, logger).Summarize(ctx, jdText)
		if err != nil {
			logger.Fatal("summarizing job description", zap.Error(err))
		}
		out.JobDescription = &jd
	}

	engine, err := matching.NewEngine(s.client, s.cfg.AI.Strategy, logger, s.cfg.AI.MaxLogLength)
	if err != nil {
		logger.Fatal("creating scoring engine", zap.Error(err))
	}

	report, err := matching.NewBatch(s.registry, engine, s.cfg.Scoring.Workers, logger).ScoreFiles(ctx, jdText, s.registry, args)
	if err != nil {
		logger.Fatal("scoring resumes", zap.Error(err))
	}
	out.Report = report

	if err := printJSON(cmd, out); err != nil {
		logger.Fatal("writing report", zap.Error(err))
	}
}
