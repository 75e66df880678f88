// Command bot polls the Practicum homework API and reports review status
// changes to a Telegram chat.
//
// Usage:
//
//	bot                  # run until interrupted
//	bot --once           # run a single poll and exit
//	bot check            # verify the required credentials are set
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homework-bot/internal/config"
	"homework-bot/internal/homework"
	"homework-bot/internal/logging"
	"homework-bot/internal/notify"
	"homework-bot/internal/poller"
	"homework-bot/internal/practicum"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	envFile string
	once    bool
)

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Homework review status notifier",
	Long: `Polls the Practicum homework API every RETRY_PERIOD seconds and sends
the review verdict of the latest homework to TELEGRAM_CHAT_ID.

Required environment (or .env file):
  PRACTICUM_TOKEN   homework API token
  TELEGRAM_TOKEN    bot token
  TELEGRAM_CHAT_ID  chat to notify`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the required credentials are set",
	Long: `Loads the environment the same way the bot does and reports missing
credentials.

Exit codes:
  0 - all credentials present
  1 - at least one credential is missing`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single poll and exit")
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := cfg.CheckTokens(); err != nil {
		return err
	}
	if _, err := cfg.ChatID(); err != nil {
		return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "credentials ok")
	return nil
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	root, closeLog, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	log := logging.Named(root, "homework")

	if err := cfg.CheckTokens(); err != nil {
		logging.Critical(&log).Msg(err.Error())
		return err
	}
	chatID, err := cfg.ChatID()
	if err != nil {
		logging.Critical(&log).Err(err).Msg("invalid TELEGRAM_CHAT_ID")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := gotgbot.NewBot(cfg.TelegramToken, nil)
	if err != nil {
		logging.Critical(&log).Err(err).Msg("failed to create bot")
		return err
	}
	log.Info().Str("bot", b.User.Username).Msg("bot authorized")

	p := newPoller(ctx, cfg, b, chatID, root)
	if once {
		p.Once(ctx)
		return nil
	}
	p.Run(ctx)
	return nil
}

func newPoller(ctx context.Context, cfg *config.Config, sender notify.MessageSender, chatID int64, root zerolog.Logger) *poller.Poller {
	client := practicum.NewClient(ctx, cfg.Endpoint, cfg.PracticumToken, cfg.RequestTimeout, logging.Named(root, "practicum"))
	notifier := notify.NewTelegram(sender, chatID, cfg.RatePerSec, logging.Named(root, "telegram"))
	checker := homework.NewChecker(logging.Named(root, "homework"))

	return poller.New(client, notifier, checker, poller.Options{
		Interval: cfg.RetryPeriod,
		Start:    time.Now(),
		Log:      logging.Named(root, "poller"),
	})
}
