package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var embedCmd = &cobra.Command{
	Use:   "embed text...",
	Short: "Print the embedding vector of a text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := newSession(ctx)

		vec, err := s.client.Embed(ctx, strings.Join(args, " "))
		if err != nil {
			s.logger.Fatal("embedding text", zap.Error(err))
		}

		out := struct {
			Model      string    `json:"model"`
			Dimensions int       `json:"dimensions"`
			Vector     []float32 `json:"vector"`
		}{
			Model:      s.client.Model(),
			Dimensions: len(vec),
			Vector:     vec,
		}

		if err := printJSON(cmd, out); err != nil {
			s.logger.Fatal("writing embedding", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)
}
