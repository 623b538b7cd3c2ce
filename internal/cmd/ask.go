package cmd

import (
	"fmt"
	"strings"

	"github.com/promptrelay/relay/internal/config"
	"github.com/promptrelay/relay/internal/logger"
	"github.com/promptrelay/relay/internal/relay"
	"github.com/promptrelay/relay/internal/upstream"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Send one prompt through the resilient relay and print the reply",
	Long: `Runs the same retry loop as the /api/generate endpoint from the terminal.
Useful to check that the configured credential works.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 开发模式日志，输出到控制台
	log, err := logger.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	prompt := strings.Join(args, " ")
	client := upstream.NewClient(cfg.Upstream, log)
	r := relay.NewResilient(client, cfg, log)

	log.Debug("Sending prompt",
		zap.String("endpoint", client.Endpoint()),
		zap.String("model", cfg.Upstream.Model),
		zap.Int("prompt_length", len(prompt)))

	result, err := r.Generate(cmd.Context(), prompt)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	return nil
}
