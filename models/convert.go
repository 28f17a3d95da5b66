package models

import (
	"github.com/bwmarrin/discordgo"

	"discord-archive/snowflake"
)

// parseID converts a wire-form id, mapping the empty string (absent
// reference) to zero. Discord never sends malformed ids; a zero from a
// malformed one degrades to "unresolved" downstream instead of aborting.
func parseID(s string) int64 {
	if s == "" {
		return 0
	}
	id, err := snowflake.ParseID(s)
	if err != nil {
		return 0
	}
	return id
}

func parseIDs(ss []string) []int64 {
	if len(ss) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(ss))
	for _, s := range ss {
		ids = append(ids, parseID(s))
	}
	return ids
}

func createdAt(id int64) float64 {
	return snowflake.UnixSeconds(id)
}

var channelTypeNames = map[discordgo.ChannelType]string{
	discordgo.ChannelTypeGuildText:     "text",
	discordgo.ChannelTypeDM:            "private",
	discordgo.ChannelTypeGuildVoice:    "voice",
	discordgo.ChannelTypeGroupDM:       "group",
	discordgo.ChannelTypeGuildCategory: "category",
	discordgo.ChannelTypeGuildNews:     "news",
}

// ChannelTypeName names a channel type the way record payloads spell it.
func ChannelTypeName(t discordgo.ChannelType) string {
	if name, ok := channelTypeNames[t]; ok {
		return name
	}
	return "other"
}

// UserFromDiscord snapshots a bare user.
func UserFromDiscord(u *discordgo.User) User {
	id := parseID(u.ID)
	return User{
		ID:            id,
		Name:          u.Username,
		Discriminator: u.Discriminator,
		DisplayName:   u.GlobalName,
		Bot:           u.Bot,
		Avatar:        u.Avatar,
		CreatedAt:     createdAt(id),
	}
}

// UserFromMember snapshots a user through its server membership, which adds
// nick, roles and join time.
func UserFromMember(m *discordgo.Member, serverID int64) User {
	u := UserFromDiscord(m.User)
	u.Server = serverID
	u.Nick = m.Nick
	u.Roles = parseIDs(m.Roles)
	if !m.JoinedAt.IsZero() {
		u.JoinedAt = float64(m.JoinedAt.UnixMilli()) / 1000
	}
	return u
}

// ChannelFromDiscord snapshots a venue definition.
func ChannelFromDiscord(ch *discordgo.Channel) Channel {
	id := parseID(ch.ID)
	out := Channel{
		ID:        id,
		Name:      ch.Name,
		Type:      ChannelTypeName(ch.Type),
		Server:    parseID(ch.GuildID),
		Position:  ch.Position,
		Topic:     ch.Topic,
		NSFW:      ch.NSFW,
		Category:  parseID(ch.ParentID),
		CreatedAt: createdAt(id),
	}
	for _, r := range ch.Recipients {
		out.Recipients = append(out.Recipients, parseID(r.ID))
	}
	return out
}

func RoleFromDiscord(r *discordgo.Role, serverID int64) Role {
	id := parseID(r.ID)
	return Role{
		ID:          id,
		Name:        r.Name,
		Server:      serverID,
		Color:       r.Color,
		Position:    r.Position,
		Hoist:       r.Hoist,
		Managed:     r.Managed,
		Mentionable: r.Mentionable,
		Permissions: r.Permissions,
		CreatedAt:   createdAt(id),
	}
}

func EmojiFromDiscord(e *discordgo.Emoji, serverID int64) Emoji {
	id := parseID(e.ID)
	return Emoji{
		ID:        id,
		Name:      e.Name,
		Animated:  e.Animated,
		Managed:   e.Managed,
		Server:    serverID,
		CreatedAt: createdAt(id),
	}
}

// EmojiRefFromDiscord builds the compact reaction emoji reference. Unicode
// emoji have no id; the name carries the literal character(s).
func EmojiRefFromDiscord(e *discordgo.Emoji) EmojiRef {
	return EmojiRef{
		ID:       parseID(e.ID),
		Name:     e.Name,
		Animated: e.Animated,
	}
}

// ServerFromDiscord snapshots a guild. Channels and members come from
// separate REST calls, so the caller passes the resolved id lists.
func ServerFromDiscord(g *discordgo.Guild, channels, members []int64) Server {
	id := parseID(g.ID)
	out := Server{
		ID:          id,
		Name:        g.Name,
		Icon:        g.Icon,
		Owner:       parseID(g.OwnerID),
		MemberCount: g.MemberCount,
		Large:       g.Large,
		Channels:    channels,
		Members:     members,
		CreatedAt:   createdAt(id),
	}
	for _, f := range g.Features {
		out.Features = append(out.Features, string(f))
	}
	for _, r := range g.Roles {
		out.Roles = append(out.Roles, parseID(r.ID))
	}
	for _, e := range g.Emojis {
		out.Emojis = append(out.Emojis, parseID(e.ID))
	}
	return out
}

// MessageFromDiscord snapshots a message, including its inline reaction
// summaries. Reaction user membership is captured by the reaction_user
// records the crawler writes after the message.
func MessageFromDiscord(m *discordgo.Message) Message {
	id := parseID(m.ID)
	out := Message{
		ID:              id,
		Channel:         parseID(m.ChannelID),
		Content:         m.Content,
		Timestamp:       float64(m.Timestamp.UnixMilli()) / 1000,
		Pinned:          m.Pinned,
		TTS:             m.TTS,
		MentionEveryone: m.MentionEveryone,
		RoleMentions:    parseIDs(m.MentionRoles),
	}
	if m.Author != nil {
		out.Author = parseID(m.Author.ID)
	}
	if m.EditedTimestamp != nil {
		out.EditedTimestamp = float64(m.EditedTimestamp.UnixMilli()) / 1000
	}
	for _, u := range m.Mentions {
		out.Mentions = append(out.Mentions, parseID(u.ID))
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, Attachment{
			ID:       parseID(a.ID),
			Filename: a.Filename,
			URL:      a.URL,
			ProxyURL: a.ProxyURL,
			Size:     a.Size,
			Width:    a.Width,
			Height:   a.Height,
		})
	}
	for _, r := range m.Reactions {
		if r.Emoji == nil {
			continue
		}
		out.Reactions = append(out.Reactions, ReactionSummary{
			Emoji: EmojiRefFromDiscord(r.Emoji),
			Count: r.Count,
		})
	}
	return out
}
