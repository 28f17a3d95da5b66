package discord

import (
	"context"
	"net/url"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"discord-archive/snowflake"
)

// Discord caps both paged endpoints at 100 items per request; a larger
// limit is rejected or silently truncated, so fetchers clamp to it.
const (
	MaxHistoryPageSize  = 100
	MaxReactionPageSize = 100
)

// Throttle is a proactive client-side request limiter shared by all
// fetchers of a session. discordgo still handles server-driven 429s; this
// bucket only keeps the crawl polite.
func Throttle(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		perSecond = 2
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// HistoryFetcher returns a page fetcher over a channel's message history,
// ascending from the given cursor. Shape matches crawler.FetchFunc.
func HistoryFetcher(s *discordgo.Session, limiter *rate.Limiter, channelID int64) func(ctx context.Context, after int64, limit int) ([]*discordgo.Message, error) {
	chID := snowflake.FormatID(channelID)
	return func(ctx context.Context, after int64, limit int) ([]*discordgo.Message, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if limit > MaxHistoryPageSize {
			limit = MaxHistoryPageSize
		}
		afterID := ""
		if after > 0 {
			afterID = snowflake.FormatID(after)
		}
		return s.ChannelMessages(chID, limit, "", afterID, "", discordgo.WithContext(ctx))
	}
}

// ReactionUserFetcher returns a page fetcher over the users of one reaction.
// A reaction's emoji route can briefly 404 mid-crawl for unicode emoji; the
// first such 404 before any page succeeded is retried once with the emoji
// url-escaped, after which errors propagate.
func ReactionUserFetcher(s *discordgo.Session, limiter *rate.Limiter, channelID, messageID int64, emoji *discordgo.Emoji) func(ctx context.Context, after int64, limit int) ([]*discordgo.User, error) {
	chID := snowflake.FormatID(channelID)
	msgID := snowflake.FormatID(messageID)
	emojiName := emoji.APIName()
	custom := emoji.ID != ""
	started := false
	retried := false
	return func(ctx context.Context, after int64, limit int) ([]*discordgo.User, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if limit > MaxReactionPageSize {
			limit = MaxReactionPageSize
		}
		afterID := ""
		if after > 0 {
			afterID = snowflake.FormatID(after)
		}
		users, err := s.MessageReactions(chID, msgID, emojiName, limit, "", afterID, discordgo.WithContext(ctx))
		if err != nil {
			if isNotFound(err) && !custom && !started && !retried {
				retried = true
				emojiName = url.QueryEscape(emojiName)
				users, err = s.MessageReactions(chID, msgID, emojiName, limit, "", afterID, discordgo.WithContext(ctx))
			}
			if err != nil {
				return nil, err
			}
		}
		started = true
		return users, nil
	}
}

// FetchMembers drains the member list of a guild through the paged members
// endpoint and returns snapshots keyed for the server record.
func FetchMembers(ctx context.Context, s *discordgo.Session, limiter *rate.Limiter, guildID int64) ([]*discordgo.Member, error) {
	gID := snowflake.FormatID(guildID)
	const pageSize = 1000
	var all []*discordgo.Member
	after := ""
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := s.GuildMembers(gID, after, pageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		after = page[len(page)-1].User.ID
	}
}
