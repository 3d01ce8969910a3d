package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract file",
	Short: "Print the plain text extracted from a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := newSession(ctx)

		doc, err := s.registry.Load(args[0])
		if err != nil {
			s.logger.Fatal("reading document", zap.Error(err))
		}

		text, err := s.registry.Extract(ctx, doc)
		if err != nil {
			s.logger.Fatal("extracting text", zap.String(logger.FieldDocument, doc.Filename), zap.Error(err))
		}

		if text == "" {
			s.logger.Warn("no text found", zap.String(logger.FieldDocument, doc.Filename))
		}

		fmt.Fprintln(cmd.OutOrStdout(), text)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
