package cmd

import (
	"context"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/email"
)

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Draft an interview invitation or a rejection email",
	Run: func(cmd *cobra.Command, _ []string) {
		draftEmail(cmd)
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	emailCmd.Flags().StringP("name", "n", "", "candidate name")
	emailCmd.Flags().StringP("kind", "k", "", "email kind: interview or rejection (asked interactively when empty)")
	emailCmd.Flags().String("role", "", "job title or description used as context")
}

func draftEmail(cmd *cobra.Command) {
	ctx := context.Background()
	s := newSession(ctx)
	logger := s.logger

	kindValue := strings.TrimSpace(cmd.Flag("kind").Value.String())
	if kindValue == "" {
		items := make([]string, 0, len(email.Kinds))
		for _, k := range email.Kinds {
			items = append(items, string(k))
		}

		prompt := promptui.Select{
			Label: "Which email should be drafted?",
			Items: items,
		}

		_, selected, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		kindValue = selected
	}

	kind, err := email.ParseKind(kindValue)
	if err != nil {
		logger.Fatal("parsing email kind", zap.Error(err))
	}

	draft, err := email.NewDrafter(s.client, logger).Draft(ctx, kind, cmd.Flag("name").Value.String(), cmd.Flag("role").Value.String())
	if err != nil {
		logger.Fatal("drafting email", zap.Error(err))
	}

	if err := printJSON(cmd, draft); err != nil {
		logger.Fatal("writing email", zap.Error(err))
	}
}
