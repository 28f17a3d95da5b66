package discord

import (
	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"discord-archive/crawler"
)

// REST is the crawler.Transport backed by the live discordgo REST API.
type REST struct {
	Session *discordgo.Session
	Limiter *rate.Limiter
}

// NewREST wraps a session with a shared client-side throttle.
func NewREST(s *discordgo.Session, perSecond float64) *REST {
	return &REST{Session: s, Limiter: Throttle(perSecond)}
}

func (r *REST) History(channelID int64) crawler.FetchFunc[*discordgo.Message] {
	return HistoryFetcher(r.Session, r.Limiter, channelID)
}

func (r *REST) ReactionUsers(channelID, messageID int64, emoji *discordgo.Emoji) crawler.FetchFunc[*discordgo.User] {
	return ReactionUserFetcher(r.Session, r.Limiter, channelID, messageID, emoji)
}
