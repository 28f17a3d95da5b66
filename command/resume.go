package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"discord-archive/bot"
	"discord-archive/records"
	"discord-archive/snowflake"
	"discord-archive/utils"
)

func newResumeCmd() *cobra.Command {
	var every string
	cmd := &cobra.Command{
		Use:   "resume <file>",
		Short: "Continue an earlier crawl, appending to its log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireToken(); err != nil {
				return err
			}
			utils.Info("command", "resume", "reading previous run info")
			plan, err := records.ReadPlan(args[0])
			if err != nil {
				return err
			}
			utils.Infof("command", "resume", "%d prior run(s), %d venue watermark(s)", plan.Runs, len(plan.Watermarks))
			for id, wm := range plan.Watermarks {
				utils.Debug("command", "resume",
					fmt.Sprintf("venue %d at %d (%s)", id, wm, snowflake.Time(wm).Format("2006-01-02")))
			}
			return bot.Run(cmd.Context(), bot.Options{
				Cfg:        cfg,
				Conf:       plan.Conf,
				LogPath:    args[0],
				Watermarks: plan.Watermarks,
				Every:      every,
				Argv:       argv(),
			})
		},
	}
	cmd.Flags().StringVar(&every, "every", "", "repeat the incremental crawl on a cron schedule (e.g. @hourly)")
	return cmd
}
