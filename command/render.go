package command

import (
	"os"

	"github.com/spf13/cobra"

	"discord-archive/transcript"
	"discord-archive/utils"
)

func newRenderCmd() *cobra.Command {
	var (
		output string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Reconstruct a log into a readable transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := transcript.Load(args[0])
			if err != nil {
				return err
			}
			utils.Infof("command", "render", "replayed %d messages, %d users, %d channels",
				len(t.Messages()), len(t.Users), len(t.Channels))

			if dbPath != "" {
				if err := t.ExportSQLite(dbPath); err != nil {
					return err
				}
			}
			if dbPath != "" && output == "" {
				return nil
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return t.WriteText(out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the text transcript to this file (default stdout)")
	cmd.Flags().StringVar(&dbPath, "sqlite", "", "also export the transcript to a SQLite database at this path")
	return cmd
}
