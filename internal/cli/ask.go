package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloo-solutions/coursebot/internal/config"
	"github.com/cloo-solutions/coursebot/internal/service"
	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().String("profile", "", "Profile name to greet")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer initTelemetry(cfg)()

	ctx := cmd.Context()
	answerSvc, closeStore, err := newAnswerService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	profile, _ := cmd.Flags().GetString("profile")
	out, err := answerSvc.Answer(ctx, service.AnswerInput{
		Query:       strings.Join(args, " "),
		ProfileName: profile,
	})
	if err != nil {
		return err
	}

	if outputFormat, _ := cmd.Flags().GetString("output"); outputFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintln(cmd.OutOrStdout(), out.Response)
	if len(out.Sources) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\nSources: %s\n", strings.Join(out.Sources, ", "))
	}
	return nil
}
