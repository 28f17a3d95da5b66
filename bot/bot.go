// Package bot wires a crawl run together: session login, venue resolution,
// append-log setup, definition emission, the crawl itself and the clean-end
// marker. One Run call is one run_info/run_finished pair in the log.
package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"

	"discord-archive/config"
	"discord-archive/crawler"
	"discord-archive/discord"
	"discord-archive/models"
	"discord-archive/records"
	"discord-archive/snowflake"
	"discord-archive/utils"
)

// Version is the tool version written into run_info records.
const Version = "2.0.0"

// ErrValidation marks pre-crawl failures (no matching venue, unusable
// resume log); the CLI maps it to a distinct exit code.
var ErrValidation = errors.New("pre-crawl validation failed")

// Options configures one archive run.
type Options struct {
	Cfg  *config.Config
	Conf models.CrawlConf

	// LogPath overrides the derived output file; resume runs append to the
	// prior log here.
	LogPath string

	// Watermarks carries resume state (venue id to highest captured
	// message id); nil for a fresh crawl.
	Watermarks map[int64]int64

	// Every is an optional cron expression; when set the incremental crawl
	// repeats on that schedule until cancelled, appending a run per tick.
	Every string

	Argv []string
}

// Run executes the crawl, or the crawl on a schedule when Every is set.
func Run(ctx context.Context, opts Options) error {
	session, err := discord.Login(opts.Cfg.Token, opts.Cfg.UserToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	watermarks := make(map[int64]int64, len(opts.Watermarks))
	for k, v := range opts.Watermarks {
		watermarks[k] = v
	}

	runOnce := func() error {
		return runCrawl(ctx, session, opts, watermarks)
	}
	if opts.Every == "" {
		return runOnce()
	}
	return runEvery(ctx, opts.Every, runOnce)
}

func runCrawl(ctx context.Context, session *discordgo.Session, opts Options, watermarks map[int64]int64) error {
	conf := opts.Conf
	if gc, ok := opts.Cfg.Guilds[conf.ID]; ok && len(gc.Exclude) > 0 {
		conf.Exclude = append(append([]int64{}, conf.Exclude...), gc.Exclude...)
	}

	guild, venues, err := discord.ListVenues(session, conf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	logPath := opts.LogPath
	if logPath == "" {
		containerID, containerName := "dm", "dm"
		if guild != nil {
			containerID, containerName = guild.ID, guild.Name
		} else if conf.Mode == "channels" && len(venues) == 1 {
			containerName = discord.VenueName(venues[0])
		}
		logPath = opts.Cfg.OutputDir + string(os.PathSeparator) +
			records.LogFileName(containerID, containerName, time.Now().UTC())
	}
	utils.Info("bot", "run", "file: "+logPath)
	if guild != nil {
		utils.Infof("bot", "run", "server: %s (%s)", guild.ID, guild.Name)
	} else {
		utils.Info("bot", "run", "server: dm")
	}
	for _, ch := range venues {
		utils.Infof("bot", "run", "channel: %s (%s)", ch.ID, discord.VenueName(ch))
	}

	// A date lower bound acts as the initial watermark for venues without
	// prior state: everything at or before it is out of scope.
	if conf.After > 0 {
		bound := snowflake.FromUnixSeconds(conf.After) - 1
		for _, ch := range venues {
			id, err := snowflake.ParseID(ch.ID)
			if err != nil {
				continue
			}
			if _, ok := watermarks[id]; !ok {
				watermarks[id] = bound
			}
		}
	}

	writer, err := records.NewWriter(logPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			utils.Error("bot", "run", "closing log: "+err.Error())
		}
	}()

	channelIDs := make([]int64, 0, len(venues))
	for _, ch := range venues {
		if id, err := snowflake.ParseID(ch.ID); err == nil {
			channelIDs = append(channelIDs, id)
		}
	}
	info := models.RunInfo{
		Argv:          opts.Argv,
		Time:          float64(time.Now().UnixMilli()) / 1000,
		Version:       Version,
		FormatVersion: models.FormatVersion,
		Conf:          conf,
		Channels:      channelIDs,
		Watermarks:    watermarks,
	}
	if err := writer.Write(models.TypeRunInfo, info); err != nil {
		return err
	}

	transport := discord.NewREST(session, opts.Cfg.Rate)
	// The engine's page size must match what the fetchers actually request,
	// or capped pages would read as short and end the crawl early.
	engine := crawler.New(transport, writer, watermarks,
		crawler.WithPageSizes(
			min(opts.Cfg.HistoryPageSize, discord.MaxHistoryPageSize),
			min(opts.Cfg.ReactionPageSize, discord.MaxReactionPageSize)))

	if guild != nil {
		utils.Info("bot", "run", "serializing server info")
		gid, _ := snowflake.ParseID(guild.ID)
		members, err := discord.FetchMembers(ctx, session, transport.Limiter, gid)
		if err != nil {
			utils.Warn("bot", "run", "member list unavailable: "+err.Error())
		}
		if err := engine.EmitServerDefinitions(guild, venues, members); err != nil {
			return err
		}
	}

	crawlErr := engine.Run(ctx, venues)

	// Watermarks advanced even on failure; carry them to the next tick.
	for k, v := range engine.Watermarks() {
		watermarks[k] = v
	}

	if crawlErr != nil {
		// Interrupted or the log itself failed: flush what we have and skip
		// the clean-end marker so the run reads as resumable.
		if err := writer.Flush(); err != nil {
			utils.Error("bot", "run", "flushing log: "+err.Error())
		}
		return crawlErr
	}
	finished := models.RunFinished{Time: float64(time.Now().UnixMilli()) / 1000}
	if err := writer.Write(models.TypeRunFinished, finished); err != nil {
		return err
	}
	return nil
}
