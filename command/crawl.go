package command

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"discord-archive/bot"
	"discord-archive/models"
	"discord-archive/snowflake"
)

type crawlFlags struct {
	after  string
	every  string
	output string
}

func (f *crawlFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.after, "after", "", "only archive messages after this date (2006-01-02 or RFC3339)")
	cmd.Flags().StringVar(&f.every, "every", "", "repeat the incremental crawl on a cron schedule (e.g. @hourly)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "append to this log file instead of deriving a name")
}

func (f *crawlFlags) apply(conf *models.CrawlConf) error {
	if f.after == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", f.after)
	if err != nil {
		t, err = time.Parse(time.RFC3339, f.after)
	}
	if err != nil {
		return fmt.Errorf("%w: bad --after date %q", bot.ErrValidation, f.after)
	}
	conf.After = float64(t.UTC().UnixMilli()) / 1000
	return nil
}

func (f *crawlFlags) run(cmd *cobra.Command, conf models.CrawlConf) error {
	if err := requireToken(); err != nil {
		return err
	}
	if err := f.apply(&conf); err != nil {
		return err
	}
	return bot.Run(cmd.Context(), bot.Options{
		Cfg:     cfg,
		Conf:    conf,
		LogPath: f.output,
		Every:   f.every,
		Argv:    argv(),
	})
}

func newServerCmd() *cobra.Command {
	flags := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "server <id>",
		Short: "Archive all readable text channels of a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snowflake.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("%w: %v", bot.ErrValidation, err)
			}
			return flags.run(cmd, models.CrawlConf{Mode: "server", ID: id})
		},
	}
	flags.register(cmd)
	return cmd
}

func newChannelsCmd() *cobra.Command {
	flags := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "channels <id>...",
		Short: "Archive specific channels (all from one server, or all DMs)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			seen := make(map[int64]struct{}, len(args))
			for _, arg := range args {
				id, err := snowflake.ParseID(arg)
				if err != nil {
					return fmt.Errorf("%w: %v", bot.ErrValidation, err)
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
			return flags.run(cmd, models.CrawlConf{Mode: "channels", IDs: ids})
		},
	}
	flags.register(cmd)
	return cmd
}

func newDMCmd() *cobra.Command {
	flags := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "dm",
		Short: "Archive all direct message and group conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.run(cmd, models.CrawlConf{Mode: "dm"})
		},
	}
	flags.register(cmd)
	return cmd
}
