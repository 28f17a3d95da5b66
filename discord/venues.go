package discord

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"

	"discord-archive/models"
	"discord-archive/snowflake"
	"discord-archive/utils"
)

func isPrivate(ch *discordgo.Channel) bool {
	return ch.Type == discordgo.ChannelTypeDM || ch.Type == discordgo.ChannelTypeGroupDM
}

func isText(ch *discordgo.Channel) bool {
	switch ch.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return true
	}
	return false
}

// VenueName names a venue for operator logs: channel name, or the first
// recipient for DMs.
func VenueName(ch *discordgo.Channel) string {
	if ch.Name != "" {
		return ch.Name
	}
	if len(ch.Recipients) > 0 {
		if ch.Type == discordgo.ChannelTypeGroupDM {
			return "group-" + ch.Recipients[0].Username
		}
		return ch.Recipients[0].Username
	}
	return ch.ID
}

// filterVenues drops non-text channels and anything the conf excludes,
// logging a reason per skipped venue.
func filterVenues(channels []*discordgo.Channel, exclude []int64) []*discordgo.Channel {
	excluded := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}
	var good []*discordgo.Channel
	for _, ch := range channels {
		id, _ := snowflake.ParseID(ch.ID)
		switch {
		case !isText(ch):
			utils.Infof("venues", "filter", "skipping %s (%s): non-text", ch.ID, VenueName(ch))
		case id != 0 && hasID(excluded, id):
			utils.Infof("venues", "filter", "skipping %s (%s): excluded by config", ch.ID, VenueName(ch))
		default:
			good = append(good, ch)
		}
	}
	return good
}

func hasID(set map[int64]struct{}, id int64) bool {
	_, ok := set[id]
	return ok
}

// userChannels lists the account's open DM and group DM channels. discordgo
// ships the endpoint constant but no wrapper for it.
func userChannels(s *discordgo.Session) ([]*discordgo.Channel, error) {
	body, err := s.RequestWithBucketID("GET",
		discordgo.EndpointUserChannels("@me"), nil, discordgo.EndpointUserChannels(""))
	if err != nil {
		return nil, err
	}
	var channels []*discordgo.Channel
	if err := json.Unmarshal(body, &channels); err != nil {
		return nil, fmt.Errorf("decoding direct message list: %w", err)
	}
	return channels, nil
}

// ListVenues resolves the crawl's venue set. Server crawls return the guild
// alongside its readable text channels in position order; channel crawls
// enforce the single-source rule; dm crawls list the account's private
// channels.
func ListVenues(s *discordgo.Session, conf models.CrawlConf) (*discordgo.Guild, []*discordgo.Channel, error) {
	switch conf.Mode {
	case "server":
		guild, err := s.Guild(snowflake.FormatID(conf.ID))
		if err != nil {
			return nil, nil, fmt.Errorf("server %d does not exist: %w", conf.ID, err)
		}
		channels, err := s.GuildChannels(guild.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("listing channels of %d: %w", conf.ID, err)
		}
		venues := filterVenues(channels, conf.Exclude)
		sort.SliceStable(venues, func(i, j int) bool { return venues[i].Position < venues[j].Position })
		return guild, venues, nil

	case "channels":
		var venues []*discordgo.Channel
		for _, id := range conf.IDs {
			ch, err := s.Channel(snowflake.FormatID(id))
			if err != nil {
				utils.Error("venues", "resolve", fmt.Sprintf("channel %d does not exist: %v", id, err))
				continue
			}
			venues = append(venues, ch)
		}
		if len(venues) == 0 {
			return nil, nil, fmt.Errorf("no channels to work with")
		}
		guildID := venues[0].GuildID
		for _, ch := range venues {
			if ch.GuildID != guildID {
				return nil, nil, fmt.Errorf("when specifying channels only one source is allowed")
			}
		}
		venues = filterVenues(venues, conf.Exclude)
		if len(venues) == 0 {
			return nil, nil, fmt.Errorf("no channels to work with")
		}
		if isPrivate(venues[0]) {
			return nil, venues, nil
		}
		guild, err := s.Guild(guildID)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving server %s: %w", guildID, err)
		}
		return guild, venues, nil

	case "dm":
		channels, err := userChannels(s)
		if err != nil {
			return nil, nil, fmt.Errorf("listing direct messages: %w", err)
		}
		venues := filterVenues(channels, conf.Exclude)
		if len(venues) == 0 {
			return nil, nil, fmt.Errorf("no channels to work with")
		}
		return nil, venues, nil
	}
	return nil, nil, fmt.Errorf("unknown crawl mode %q", conf.Mode)
}
