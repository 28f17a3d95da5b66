// Package command defines the CLI surface: crawl commands (server,
// channels, dm), resume and render.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"discord-archive/bot"
	"discord-archive/config"
	"discord-archive/records"
	"discord-archive/utils"
)

var (
	cfg       *config.Config
	flagDebug bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "discord-archive",
		Short:         "Incrementally archive Discord message history into an append-only log",
		Long:          "Archives the full message history of a server, channel set or DM list\ninto an append-only record log that can be resumed and re-rendered.\nReads TOKEN (or DISCORD_TOKEN) from the environment or .env.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			utils.InitLogger(flagDebug || (cfg != nil && cfg.Debug))
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(newServerCmd())
	root.AddCommand(newChannelsCmd())
	root.AddCommand(newDMCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newRenderCmd())
	return root
}

// ExecuteContext runs the CLI and returns the process exit code: 0 on
// clean completion, 2 on pre-crawl validation failure, 1 otherwise.
func ExecuteContext(ctx context.Context) int {
	var err error
	cfg, err = config.Load()
	if err != nil {
		utils.Error("command", "config", err.Error())
		return 2
	}

	root := newRootCmd()
	err = root.ExecuteContext(ctx)
	defer utils.Sync()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, bot.ErrValidation),
		errors.Is(err, records.ErrIncompatibleFormat),
		errors.Is(err, records.ErrCorruptLog):
		utils.Error("command", "run", err.Error())
		return 2
	default:
		utils.Error("command", "run", err.Error())
		return 1
	}
}

func requireToken() error {
	if cfg.Token == "" {
		return fmt.Errorf("%w: no credentials set (TOKEN environment variable)", bot.ErrValidation)
	}
	return nil
}

func argv() []string {
	return os.Args[1:]
}
